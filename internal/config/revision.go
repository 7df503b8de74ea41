package config

import "fmt"

// RevisionConfig pins the layout constants and anchor fragments for one
// known bundle revision. The bundle is minified and has no stable grammar,
// so each value is located by an exact anchor fragment rather than parsed.
type RevisionConfig struct {
	// Original toast dimensions in pixels.
	Width          int `yaml:"width"`
	HeightCompact  int `yaml:"height_compact"`
	HeightExpanded int `yaml:"height_expanded"`

	// ClassToken is the CSS-modules class the bundle assigns to the toast
	// root element. It anchors the style hook in both targets.
	ClassToken string `yaml:"class_token"`

	// Script anchors. Each bounds the literal span(s) to rewrite.
	WidthAnchor   AnchorConfig `yaml:"width_anchor"`
	HeightsAnchor AnchorConfig `yaml:"heights_anchor"`
	ClassAnchor   AnchorConfig `yaml:"class_anchor"`

	// StylesheetAnchor is the end-of-file marker comment prefix in the
	// stylesheet; the generated rule is inserted directly before it.
	StylesheetAnchor string `yaml:"stylesheet_anchor"`
}

// AnchorConfig mirrors the patch engine's anchor shape so the config
// package stays import-free of the engine.
type AnchorConfig struct {
	Prefix string   `yaml:"prefix"`
	Delims []string `yaml:"delims"`
}

// DefaultRevision returns the anchors and dimensions for the currently
// supported Steam client build. Steam's own JS keeps Valve's m_ member
// naming through minification, which is what makes these fragments stable
// within a revision.
func DefaultRevision() RevisionConfig {
	return RevisionConfig{
		Width:          283,
		HeightCompact:  70,
		HeightExpanded: 90,

		ClassToken: "desktoasts_DesktopToast_3mLrD",

		WidthAnchor: AnchorConfig{
			Prefix: "this.m_nToastWidth=",
			Delims: []string{","},
		},
		HeightsAnchor: AnchorConfig{
			Prefix: "this.m_nToastHeight=this.m_bExpanded?",
			Delims: []string{":", ","},
		},
		ClassAnchor: AnchorConfig{
			Prefix: `this.m_strToastClassName="`,
			Delims: []string{`"`},
		},

		StylesheetAnchor: "/*# sourceMappingURL=",
	}
}

func (r *RevisionConfig) validate() error {
	if r.Width <= 0 || r.HeightCompact <= 0 || r.HeightExpanded <= 0 {
		return fmt.Errorf("original dimensions must be positive")
	}
	if r.ClassToken == "" {
		return fmt.Errorf("class_token is required")
	}
	for _, a := range []struct {
		name   string
		anchor AnchorConfig
	}{
		{"width_anchor", r.WidthAnchor},
		{"heights_anchor", r.HeightsAnchor},
		{"class_anchor", r.ClassAnchor},
	} {
		if a.anchor.Prefix == "" {
			return fmt.Errorf("%s: prefix is required", a.name)
		}
		if len(a.anchor.Delims) == 0 {
			return fmt.Errorf("%s: at least one delimiter is required", a.name)
		}
	}
	if r.StylesheetAnchor == "" {
		return fmt.Errorf("stylesheet_anchor is required")
	}
	return nil
}
