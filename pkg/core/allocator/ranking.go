package allocator

import (
	"cmp"
	"math"
	"slices"

	"github.com/jakechorley/resource-allocator/pkg/core/model"
)

// RankClients wraps clients in entries and orders them for processing.
//
// The first occurrence of a duplicated ClientID wins; later rows with the same ID
// are dropped. Clients are sorted by ranking score, descending. The sort is stable,
// so clients with equal scores keep their input order.
func RankClients(clients []model.Client, weights Weights) []*ClientEntry {
	entries := make([]*ClientEntry, 0, len(clients))
	seen := make(map[string]bool, len(clients))
	for i := range clients {
		if seen[clients[i].ClientID] {
			continue
		}
		seen[clients[i].ClientID] = true
		entries = append(entries, &ClientEntry{
			Client: &clients[i],
			Index:  i,
			Score:  calculateClientRankingScore(&clients[i], weights),
		})
	}

	slices.SortStableFunc(entries, func(a, b *ClientEntry) int {
		return cmp.Compare(b.Score, a.Score)
	})

	return entries
}

// calculateClientRankingScore computes the sort key for a client.
// A missing, zero or NaN PriorityLevel counts as 1.
func calculateClientRankingScore(client *model.Client, weights Weights) float64 {
	priority := client.PriorityLevel
	if priority == 0 || math.IsNaN(priority) {
		priority = 1
	}
	return priority * weights.Priority
}
