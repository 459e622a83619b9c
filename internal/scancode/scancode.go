// Package scancode serialises student records into the payload carried by
// the card's QR region.
package scancode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/noah-isme/sma-idcard/internal/models"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type payload struct {
	Name           string   `json:"name"`
	RollNumber     string   `json:"rollNumber"`
	ClassDivision  string   `json:"classDivision"`
	Allergies      []string `json:"allergies"`
	RackNumber     string   `json:"rackNumber"`
	BusRoute       string   `json:"busRoute"`
	PhotoReference string   `json:"photoReference,omitempty"`
	PhotoName      string   `json:"photoName,omitempty"`
	CreatedAt      string   `json:"createdAt"`
}

// Encode returns the full record as compact JSON. Equal records always yield
// equal payloads and nothing is truncated.
func Encode(record models.StudentRecord) (string, error) {
	allergies := record.Allergies
	if allergies == nil {
		allergies = []string{}
	}
	p := payload{
		Name:           record.Name,
		RollNumber:     record.RollNumber,
		ClassDivision:  record.ClassDivision,
		Allergies:      allergies,
		RackNumber:     record.RackNumber,
		BusRoute:       record.BusRoute,
		PhotoReference: record.PhotoReference,
		PhotoName:      record.PhotoName,
		CreatedAt:      record.CreatedAt.UTC().Format(timeLayout),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Decode parses a payload produced by Encode.
func Decode(data string) (models.StudentRecord, error) {
	var p payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return models.StudentRecord{}, fmt.Errorf("decode payload: %w", err)
	}
	createdAt, err := time.Parse(timeLayout, p.CreatedAt)
	if err != nil {
		return models.StudentRecord{}, fmt.Errorf("decode createdAt: %w", err)
	}
	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	return models.StudentRecord{
		Name:           p.Name,
		RollNumber:     p.RollNumber,
		ClassDivision:  p.ClassDivision,
		Allergies:      p.Allergies,
		RackNumber:     p.RackNumber,
		BusRoute:       p.BusRoute,
		PhotoReference: p.PhotoReference,
		PhotoName:      p.PhotoName,
		CreatedAt:      createdAt.UTC(),
	}, nil
}
