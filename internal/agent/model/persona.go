package model

import "strings"

// Persona is the character the assistant speaks as.
type Persona struct {
	Name          string   `json:"name" yaml:"name"`
	CharacterName string   `json:"character_name" yaml:"character_name"`
	Directives    []string `json:"core_persona_directives" yaml:"core_persona_directives"`
}

// DisplayName prefers the character name and falls back to the file name.
func (p *Persona) DisplayName() string {
	if p == nil {
		return ""
	}
	if strings.TrimSpace(p.CharacterName) != "" {
		return p.CharacterName
	}
	return p.Name
}
