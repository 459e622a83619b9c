// Package card renders a student record into a template-coloured card view.
package card

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/noah-isme/sma-idcard/internal/models"
	"github.com/noah-isme/sma-idcard/internal/scancode"
)

// Fixed card copy and code settings.
const (
	Title          = "Student ID Card"
	AllergyHeading = "Allergies:"
	ActionLabel    = "Download as PNG"
	CodeSize       = 128
	CodeLevel      = "H"
	unknownInitial = "?"
)

// Paint is a colour taken from a template role.
type Paint struct {
	Role  models.ColorRole  `json:"role"`
	Token models.ColorToken `json:"token"`
}

// Header is the title band.
type Header struct {
	Title      string `json:"title"`
	Background Paint  `json:"background"`
	Foreground Paint  `json:"foreground"`
}

// Portrait shows the photo when present, otherwise the name initial.
type Portrait struct {
	PhotoReference string `json:"photoReference,omitempty"`
	Initial        string `json:"initial,omitempty"`
	Background     Paint  `json:"background"`
	Foreground     Paint  `json:"foreground"`
	Border         Paint  `json:"border"`
}

// Name is the student's display name.
type Name struct {
	Text  string `json:"text"`
	Color Paint  `json:"color"`
}

// Field is one labelled identity value.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Identity holds the labelled fields in display order.
type Identity struct {
	Fields     []Field `json:"fields"`
	Background Paint   `json:"background"`
	Label      Paint   `json:"label"`
	Value      Paint   `json:"value"`
}

// AllergyRegion lists one badge per allergy.
type AllergyRegion struct {
	Heading         string   `json:"heading"`
	Badges          []string `json:"badges"`
	HeadingColor    Paint    `json:"headingColor"`
	BadgeBackground Paint    `json:"badgeBackground"`
	BadgeForeground Paint    `json:"badgeForeground"`
}

// Code is the scannable region.
type Code struct {
	Payload       string `json:"payload"`
	Size          int    `json:"size"`
	Level         string `json:"level"`
	IncludeMargin bool   `json:"includeMargin"`
	Foreground    Paint  `json:"foreground"`
	Background    Paint  `json:"background"`
}

// Action is the download control at the bottom of the card.
type Action struct {
	Label            string `json:"label"`
	Background       Paint  `json:"background"`
	ButtonBackground Paint  `json:"buttonBackground"`
	ButtonForeground Paint  `json:"buttonForeground"`
}

// View is the full render of one card.
type View struct {
	ID         string               `json:"id"`
	TemplateID string               `json:"templateId"`
	Dark       bool                 `json:"dark"`
	Surface    Paint                `json:"surface"`
	Border     Paint                `json:"border"`
	Header     Header               `json:"header"`
	Portrait   Portrait             `json:"portrait"`
	Name       Name                 `json:"name"`
	Identity   Identity             `json:"identity"`
	Allergies  *AllergyRegion       `json:"allergies,omitempty"`
	Code       Code                 `json:"code"`
	Action     Action               `json:"action"`
	Record     models.StudentRecord `json:"record"`
}

// Render maps a record and template to a card view. It has no side effects and
// reads every colour from the template.
func Render(record models.StudentRecord, tpl models.Template) (View, error) {
	payload, err := scancode.Encode(record)
	if err != nil {
		return View{}, err
	}

	paint := func(role models.ColorRole) Paint {
		tok, _ := tpl.Colors.Token(role)
		return Paint{Role: role, Token: tok}
	}

	view := View{
		TemplateID: tpl.ID,
		Dark:       tpl.Dark,
		Surface:    paint(models.RoleSurface),
		Border:     paint(models.RoleSecondary),
		Header: Header{
			Title:      Title,
			Background: paint(models.RolePrimary),
			Foreground: paint(models.RoleSurface),
		},
		Portrait: Portrait{
			Background: paint(models.RoleAccent),
			Foreground: paint(models.RoleText),
			Border:     paint(models.RoleSecondary),
		},
		Name: Name{Text: record.Name, Color: paint(models.RoleText)},
		Identity: Identity{
			Fields: []Field{
				{Label: "Class", Value: record.ClassDivision},
				{Label: "Roll Number", Value: record.RollNumber},
				{Label: "Rack Number", Value: record.RackNumber},
				{Label: "Bus Route", Value: record.BusRoute},
			},
			Background: paint(models.RoleAccent),
			Label:      paint(models.RoleText),
			Value:      paint(models.RoleText),
		},
		Code: Code{
			Payload:       payload,
			Size:          CodeSize,
			Level:         CodeLevel,
			IncludeMargin: true,
			Foreground:    paint(models.RolePrimary),
			Background:    paint(models.RoleSurface),
		},
		Action: Action{
			Label:            ActionLabel,
			Background:       paint(models.RoleAccent),
			ButtonBackground: paint(models.RolePrimary),
			ButtonForeground: paint(models.RoleSurface),
		},
		Record: record,
	}

	if record.HasPhoto() {
		view.Portrait.PhotoReference = record.PhotoReference
	} else {
		view.Portrait.Initial = Initial(record.Name)
	}

	if tpl.Dark {
		view.Code.Foreground = paint(models.RoleText)
		view.Code.Background = paint(models.RolePrimary)
	}

	if len(record.Allergies) > 0 {
		view.Allergies = &AllergyRegion{
			Heading:         AllergyHeading,
			Badges:          append([]string(nil), record.Allergies...),
			HeadingColor:    paint(models.RoleAlert),
			BadgeBackground: paint(models.RoleAlertSurface),
			BadgeForeground: paint(models.RoleAlert),
		}
	}
	return view, nil
}

// Initial is the upper-cased first character of name, or "?" when empty.
func Initial(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return unknownInitial
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r))
}

// Colors returns every paint used by the view.
func (v View) Colors() []Paint {
	out := []Paint{
		v.Surface, v.Border,
		v.Header.Background, v.Header.Foreground,
		v.Portrait.Background, v.Portrait.Foreground, v.Portrait.Border,
		v.Name.Color,
		v.Identity.Background, v.Identity.Label, v.Identity.Value,
		v.Code.Foreground, v.Code.Background,
		v.Action.Background, v.Action.ButtonBackground, v.Action.ButtonForeground,
	}
	if v.Allergies != nil {
		out = append(out, v.Allergies.HeadingColor, v.Allergies.BadgeBackground, v.Allergies.BadgeForeground)
	}
	return out
}
