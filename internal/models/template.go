package models

import (
	"fmt"
	"image/color"
)

// ColorRole names a semantic colour slot resolved by the active template.
type ColorRole string

const (
	RolePrimary      ColorRole = "primary"
	RoleSecondary    ColorRole = "secondary"
	RoleAccent       ColorRole = "accent"
	RoleText         ColorRole = "text"
	RoleSurface      ColorRole = "surface"
	RoleAlert        ColorRole = "alert"
	RoleAlertSurface ColorRole = "alertSurface"
)

// AllColorRoles lists every role a template must resolve.
var AllColorRoles = []ColorRole{
	RolePrimary, RoleSecondary, RoleAccent, RoleText, RoleSurface, RoleAlert, RoleAlertSurface,
}

// ColorToken is a palette token (e.g. "blue-600") with its resolved colour.
type ColorToken struct {
	Name string     `json:"name"`
	Hex  string     `json:"hex"`
	RGBA color.RGBA `json:"-"`
}

// ColorRoles maps every role to a resolved token.
type ColorRoles struct {
	Primary      ColorToken `json:"primary"`
	Secondary    ColorToken `json:"secondary"`
	Accent       ColorToken `json:"accent"`
	Text         ColorToken `json:"text"`
	Surface      ColorToken `json:"surface"`
	Alert        ColorToken `json:"alert"`
	AlertSurface ColorToken `json:"alertSurface"`
}

// Token returns the token bound to role.
func (c ColorRoles) Token(role ColorRole) (ColorToken, error) {
	switch role {
	case RolePrimary:
		return c.Primary, nil
	case RoleSecondary:
		return c.Secondary, nil
	case RoleAccent:
		return c.Accent, nil
	case RoleText:
		return c.Text, nil
	case RoleSurface:
		return c.Surface, nil
	case RoleAlert:
		return c.Alert, nil
	case RoleAlertSurface:
		return c.AlertSurface, nil
	default:
		return ColorToken{}, fmt.Errorf("unknown colour role %q", role)
	}
}

// Template is one entry of the fixed card template catalogue.
type Template struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	Dark        bool       `json:"dark"`
	Colors      ColorRoles `json:"colors"`
}
