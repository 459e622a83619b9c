package models

import (
	"strings"
	"time"
)

// ClassDivisions lists the selectable class & division values.
var ClassDivisions = []string{"1A", "1B", "2A", "2B"}

// BusRoutes lists the selectable bus routes.
var BusRoutes = []string{"Route 1", "Route 2", "Route 3"}

// AllergyOptions lists the allergies a student can declare, in display order.
var AllergyOptions = []string{"Peanuts", "Dairy", "Gluten", "Dust", "Pollen"}

// StudentRecord is one immutable form submission.
type StudentRecord struct {
	Name           string    `json:"name"`
	RollNumber     string    `json:"rollNumber"`
	ClassDivision  string    `json:"classDivision"`
	Allergies      []string  `json:"allergies"`
	RackNumber     string    `json:"rackNumber"`
	BusRoute       string    `json:"busRoute"`
	PhotoReference string    `json:"photoReference,omitempty"`
	PhotoName      string    `json:"photoName,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HasPhoto reports whether the record carries a portrait reference.
func (r StudentRecord) HasPhoto() bool {
	return strings.TrimSpace(r.PhotoReference) != ""
}

// SubmitStudentRequest is the registration form payload.
type SubmitStudentRequest struct {
	Name           string   `json:"name" validate:"required"`
	RollNumber     string   `json:"rollNumber" validate:"required"`
	ClassDivision  string   `json:"classDivision" validate:"required,classdivision"`
	Allergies      []string `json:"allergies" validate:"omitempty,dive,allergy"`
	RackNumber     string   `json:"rackNumber" validate:"required"`
	BusRoute       string   `json:"busRoute" validate:"required,busroute"`
	PhotoReference string   `json:"photoReference"`
	PhotoName      string   `json:"photoName"`
}

// NormalizeAllergies drops duplicates and unknown values and orders the rest like AllergyOptions.
func NormalizeAllergies(allergies []string) []string {
	selected := make(map[string]struct{}, len(allergies))
	for _, a := range allergies {
		selected[strings.TrimSpace(a)] = struct{}{}
	}
	result := make([]string, 0, len(selected))
	for _, option := range AllergyOptions {
		if _, ok := selected[option]; ok {
			result = append(result, option)
		}
	}
	return result
}

// IsClassDivision reports whether v is in the class catalogue.
func IsClassDivision(v string) bool { return contains(ClassDivisions, v) }

// IsBusRoute reports whether v is in the bus route catalogue.
func IsBusRoute(v string) bool { return contains(BusRoutes, v) }

// IsAllergy reports whether v is in the allergy catalogue.
func IsAllergy(v string) bool { return contains(AllergyOptions, v) }

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
