package patch

// Shared fixtures: trimmed-down but structurally faithful excerpts of the
// pinned bundle revision (minified, single line, Valve m_ member naming).

const (
	testToken  = "desktoasts_DesktopToast_3mLrD"
	testMarker = "lovely-custom-toasts"
)

const scriptFixture = `"use strict";(self.webpackChunksteamui=self.webpackChunksteamui||[]).push([[7428],{83916:(e,t,n)=>{class o{constructor(e){this.m_rgToasts=[],this.m_nToastWidth=283,this.m_nToastHeight=this.m_bExpanded?90:70,this.m_strToastClassName="desktoasts_DesktopToast_3mLrD",this.m_eDisplayMode=e}ScheduleToast(e){this.m_rgToasts.push(e)}}t.Z=o}}]);`

const stylesheetFixture = `.desktoasts_DesktopToast_3mLrD{width:283px;min-height:70px;overflow:hidden}.desktoasts_Dismissed_1GLnM{opacity:0}.desktoasts_Body_2treY{display:flex}/*# sourceMappingURL=library.css.map*/`

func testScript() Script {
	return Script{
		Width:   Anchor{Name: "width", Prefix: "this.m_nToastWidth=", Delims: []string{","}},
		Heights: Anchor{Name: "heights", Prefix: "this.m_nToastHeight=this.m_bExpanded?", Delims: []string{":", ","}},
		Class:   Anchor{Name: "class", Prefix: `this.m_strToastClassName="`, Delims: []string{`"`}},
	}
}

func testStylesheet() Stylesheet {
	return Stylesheet{
		EOFAnchor:  "/*# sourceMappingURL=",
		ClassToken: testToken,
		Marker:     testMarker,
	}
}

func testOriginal() Original {
	return Original{
		Width:          283,
		HeightCompact:  70,
		HeightExpanded: 90,
		ClassToken:     testToken,
	}
}
