/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package labparse

import (
	"fmt"
	"strings"
)

// Recommendation pairs a specialist with a short human-readable reason.
type Recommendation struct {
	Specialist string `json:"specialist"`
	Reason     string `json:"reason"`
}

// Recommend builds a Recommendation for each specialist, keeping order.
func Recommend(specialists []string) []Recommendation {
	recs := make([]Recommendation, 0, len(specialists))
	for _, s := range specialists {
		recs = append(recs, Recommendation{
			Specialist: s,
			Reason:     fmt.Sprintf("Recommended based on abnormal %s results", reasonSubject(s)),
		})
	}

	return recs
}

func reasonSubject(specialist string) string {
	s := strings.ToLower(specialist)

	switch {
	case strings.Contains(s, "cardio"):
		return "heart"
	case strings.Contains(s, "hema"):
		return "blood"
	case strings.Contains(s, "endo"):
		return "sugar"
	case strings.Contains(s, "nephro"):
		return "kidney"
	default:
		return "test"
	}
}
