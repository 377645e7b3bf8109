package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseToolbar(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []Button
	}{
		{
			name: "buttons with params",
			body: "run|publish=Publish\nrun = Run all\nhelp=?",
			want: []Button{
				{ID: "run", Label: "Publish", Params: []string{"publish"}},
				{ID: "run", Label: "Run all", Params: []string{}},
				{ID: "help", Label: "?", Params: []string{}},
			},
		},
		{
			name: "malformed lines ignored",
			body: "just text\nrun=a=b\nrun | draft | extra = Draft",
			want: []Button{{ID: "run", Label: "Draft", Params: []string{"draft", "extra"}}},
		},
		{
			name: "defaults",
			body: "nothing here",
			want: []Button{{ID: ButtonRun}, {ID: ButtonHelp}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseToolbar(tt.body))
		})
	}
}

func TestButtonRunGroup(t *testing.T) {
	assert.Equal(t, "publish", Button{ID: ButtonRun, Params: []string{"publish", "x"}}.RunGroup())
	assert.Empty(t, Button{ID: ButtonRun}.RunGroup())
}

func TestMarkdownTable(t *testing.T) {
	got := MarkdownTable([]string{"<Name", ">Age", "City"}, [][]string{{"Ann", "34", "Oslo"}})
	want := strings.Join([]string{
		"",
		"| Name | Age | City |",
		"|:---- | ---:|:----:|",
		"| Ann | 34 | Oslo |",
		"",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestExcerpt(t *testing.T) {
	listing := numberedListing("first()\nsecond()\nboom()\nfourth()\nfifth()\nsixth()")

	t.Run("middle line", func(t *testing.T) {
		want := strings.Join([]string{
			"   1: first()",
			"   2: second()",
			"   3: boom()",
			"          ^--- kaboom",
			"   4: fourth()",
			"   5: fifth()",
		}, "\n")
		assert.Equal(t, want, excerpt(listing, 3, 5, "kaboom"))
	})

	t.Run("first line", func(t *testing.T) {
		want := strings.Join([]string{
			"   1: first()",
			"      ^--- bad",
			"   2: second()",
			"   3: boom()",
		}, "\n")
		assert.Equal(t, want, excerpt(listing, 1, 1, "bad"))
	})

	t.Run("last line keeps the line itself", func(t *testing.T) {
		want := strings.Join([]string{
			"   4: fourth()",
			"   5: fifth()",
			"   6: sixth()",
			"       ^--- late",
		}, "\n")
		assert.Equal(t, want, excerpt(listing, 6, 2, "late"))
	})

	t.Run("out of range", func(t *testing.T) {
		assert.Empty(t, excerpt(listing, 9, 1, "x"))
	})
}

func TestScriptErrorText(t *testing.T) {
	assert.Equal(t, "Setup:3:7: oops", (&ScriptError{Message: "oops", Line: 3, Column: 7, Block: "Setup"}).Error())
	assert.Equal(t, "line 3:7: oops", (&ScriptError{Message: "oops", Line: 3, Column: 7}).Error())
	assert.Equal(t, "oops", (&ScriptError{Message: "oops"}).Error())
}
