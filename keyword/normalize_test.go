package keyword

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("", Slugify(""))
	assert.Equal("abc", Slugify("abc"))
	assert.Equal("abc", Slugify("  ABC!  "))
	assert.Equal("abc123", Slugify("a b-c 1.2.3"))
}

func TestNormalizeLeetFold(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		input  string
		output string
	}{
		{"", ""},
		{"grapeshot", "grapeshot"},
		{"GrApEsHoT", "grapeshot"},
		{"gr4pe5h07", "grapeshot"},
		{"gr@pe$ho7!", "grapeshoti"},
		{"g.r.a.p.e.s.h.o.t", "grapeshot"},
		{"gr​apes‍hot", "grapeshot"},
		{"grápêshöt", "grapeshot"},
	}
	for _, fix := range fixtures {
		assert.Equal(fix.output, Normalize(fix.input))
	}
}

// every hard term must survive zero-width insertion and leet substitution
func TestNormalizeObfuscationProperty(t *testing.T) {
	assert := assert.New(t)

	terms := []string{"grapeshot", "windlass", "bosun"}
	leet := strings.NewReplacer("o", "0", "i", "1", "e", "3", "a", "4", "s", "5", "t", "7")

	for _, term := range terms {
		// zero-width joiner between every rune
		var zw strings.Builder
		for _, r := range term {
			zw.WriteRune(r)
			zw.WriteRune('​')
		}
		assert.Contains(Normalize(zw.String()), term)

		// full leetspeak substitution
		assert.Contains(Normalize(leet.Replace(term)), term)
	}
}

func TestTokenizeText(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		input  string
		output []string
	}{
		{"", []string{}},
		{"Hello, World!", []string{"hello", "world"}},
		{"  same   message  ", []string{"same", "message"}},
		{"SAME message", []string{"same", "message"}},
		{"cliché façade", []string{"cliche", "facade"}},
	}
	for _, fix := range fixtures {
		assert.Equal(fix.output, TokenizeText(fix.input))
	}
}

