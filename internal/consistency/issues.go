package consistency

import (
	"sort"
)

type EntityType string

const (
	EntityStarSystem EntityType = "star_system"
	EntityPlanet     EntityType = "planet"
	EntityPlayer     EntityType = "player"
)

type IssueCode string

const (
	IssuePlanetCountMismatch       IssueCode = "planet_count_mismatch"
	IssueMissingCoordinates        IssueCode = "missing_coordinates"
	IssueNoPlanets                 IssueCode = "no_planets"
	IssueTooManyPlanets            IssueCode = "too_many_planets"
	IssueSystemsTooClose           IssueCode = "systems_too_close"
	IssueOrphanPlanet              IssueCode = "orphan_planet"
	IssueInvalidStarSystem         IssueCode = "invalid_star_system"
	IssueMissingOrbitalCoordinates IssueCode = "missing_orbital_coordinates"
	IssueMissingProperties         IssueCode = "missing_properties"
	IssueCoordinateMismatch        IssueCode = "coordinate_mismatch"
	IssueInvalidHomePlanet         IssueCode = "invalid_home_planet"
	IssueHomePlanetNoStarSystem    IssueCode = "home_planet_no_star_system"
)

type IssueKey struct {
	Entity EntityType
	Code   IssueCode
}

// KnownIssues lists every check the Checker runs, in report order.
var KnownIssues = []IssueKey{
	{EntityStarSystem, IssuePlanetCountMismatch},
	{EntityStarSystem, IssueMissingCoordinates},
	{EntityStarSystem, IssueNoPlanets},
	{EntityStarSystem, IssueTooManyPlanets},
	{EntityStarSystem, IssueSystemsTooClose},
	{EntityPlanet, IssueOrphanPlanet},
	{EntityPlanet, IssueInvalidStarSystem},
	{EntityPlanet, IssueMissingCoordinates},
	{EntityPlanet, IssueMissingOrbitalCoordinates},
	{EntityPlanet, IssueMissingProperties},
	{EntityPlanet, IssueCoordinateMismatch},
	{EntityPlayer, IssueInvalidHomePlanet},
	{EntityPlayer, IssueHomePlanetNoStarSystem},
}

// Detail is one flat record describing a single violation.
type Detail map[string]any

// SystemPair is one offending pair of a systems_too_close issue.
type SystemPair struct {
	SystemA  int     `json:"system_a" yaml:"system_a"`
	SystemB  int     `json:"system_b" yaml:"system_b"`
	Distance float64 `json:"distance" yaml:"distance"`
}

type Group struct {
	Entity  EntityType `json:"entity" yaml:"entity"`
	Code    IssueCode  `json:"code" yaml:"code"`
	Count   int        `json:"count" yaml:"count"`
	Details []Detail   `json:"details" yaml:"details"`
}

// IssueSet groups violations by entity type and issue code.
type IssueSet struct {
	groups map[IssueKey][]Detail
}

func NewIssueSet() *IssueSet {
	return &IssueSet{groups: make(map[IssueKey][]Detail)}
}

func (s *IssueSet) Add(entity EntityType, code IssueCode, detail Detail) {
	key := IssueKey{entity, code}
	s.groups[key] = append(s.groups[key], detail)
}

func (s *IssueSet) Get(entity EntityType, code IssueCode) []Detail {
	return s.groups[IssueKey{entity, code}]
}

func (s *IssueSet) CountFor(entity EntityType, code IssueCode) int {
	return len(s.groups[IssueKey{entity, code}])
}

// Count returns the number of issues. A systems_too_close issue counts once
// no matter how many pairs it carries.
func (s *IssueSet) Count() int {
	total := 0
	for _, details := range s.groups {
		total += len(details)
	}
	return total
}

func (s *IssueSet) Empty() bool {
	return s.Count() == 0
}

// Groups returns the non-empty groups in KnownIssues order, followed by any
// other group sorted by entity and code.
func (s *IssueSet) Groups() []Group {
	rank := make(map[IssueKey]int, len(KnownIssues))
	for i, key := range KnownIssues {
		rank[key] = i
	}

	keys := make([]IssueKey, 0, len(s.groups))
	for key, details := range s.groups {
		if len(details) > 0 {
			keys = append(keys, key)
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		ri, iKnown := rank[keys[i]]
		rj, jKnown := rank[keys[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		case keys[i].Entity != keys[j].Entity:
			return keys[i].Entity < keys[j].Entity
		default:
			return keys[i].Code < keys[j].Code
		}
	})

	groups := make([]Group, 0, len(keys))
	for _, key := range keys {
		details := s.groups[key]
		groups = append(groups, Group{Entity: key.Entity, Code: key.Code, Count: len(details), Details: details})
	}
	return groups
}

// SystemPairs returns the offending pairs of the systems_too_close issue.
func (s *IssueSet) SystemPairs() []SystemPair {
	var pairs []SystemPair
	for _, detail := range s.Get(EntityStarSystem, IssueSystemsTooClose) {
		if p, ok := detail["pairs"].([]SystemPair); ok {
			pairs = append(pairs, p...)
		}
	}
	return pairs
}

// IDs collects the integer field key of every detail of a group.
func (s *IssueSet) IDs(entity EntityType, code IssueCode, key string) []int {
	var ids []int
	for _, detail := range s.Get(entity, code) {
		if id, ok := intField(detail, key); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func intField(detail Detail, key string) (int, bool) {
	switch v := detail[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
