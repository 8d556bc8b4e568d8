package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/operant/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "Subject,Hopper Duration (ms),Rejection FI Duration (ms),Informative Side,Informative S+,Informative S-,Non-Informative Side,Non-Informative S+,Non-Informative S-\n"

func writeSheet(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "P037_subject_settings.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadSubject(t *testing.T) {
	path := writeSheet(t, "\ufeff"+header+
		"Zappa,3000,5000,Left,green,red,Right,blue,yellow\n"+
		"Bowie,2500,0,right,#00ff00,#ff0000,left,purple,orange\n")

	cfg, err := LoadSubject(path, "Zappa")
	require.NoError(t, err)
	assert.Equal(t, "Zappa", cfg.SubjectID)
	assert.Equal(t, 3*time.Second, cfg.HopperDuration)
	assert.Equal(t, 5*time.Second, cfg.RejectionFIDuration)
	assert.Equal(t, domain.SideLeft, cfg.InformativeSide)
	assert.Equal(t, domain.SideRight, cfg.NonInformativeSide())
	assert.Equal(t, domain.StimulusColors{SPlus: "green", SMinus: "red", S1: "blue", S2: "yellow"}, cfg.Colors)

	cfg, err = LoadSubject(path, "Bowie")
	require.NoError(t, err)
	assert.Equal(t, domain.SideRight, cfg.InformativeSide)
	assert.Equal(t, time.Duration(0), cfg.RejectionFIDuration)
}

func TestLoadSubject_Errors(t *testing.T) {
	t.Run("Missing file", func(t *testing.T) {
		_, err := LoadSubject(filepath.Join(t.TempDir(), "nope.csv"), "Zappa")
		assert.ErrorIs(t, err, domain.ErrSettingsNotFound)
	})

	t.Run("Missing subject", func(t *testing.T) {
		path := writeSheet(t, header+"Zappa,3000,5000,Left,green,red,Right,blue,yellow\n")
		_, err := LoadSubject(path, "Hendrix")
		assert.ErrorIs(t, err, domain.ErrSubjectNotFound)
	})

	t.Run("Malformed rows", func(t *testing.T) {
		path := writeSheet(t, header+
			"BadNumber,lots,5000,Left,green,red,Right,blue,yellow\n"+
			"BadSide,3000,5000,Up,green,red,Right,blue,yellow\n"+
			"SameSide,3000,5000,Left,green,red,Left,blue,yellow\n"+
			"BadColor,3000,5000,Left,chartreuse-ish,red,Right,blue,yellow\n"+
			"NoHopper,,5000,Left,green,red,Right,blue,yellow\n"+
			"EmptyFI,3000,,Left,green,red,Right,blue,yellow\n"+
			"Exponent,1e3,5000,Left,green,red,Right,blue,yellow\n"+
			"Fraction,3000,2.5,Left,green,red,Right,blue,yellow\n"+
			"ShortRow,3000,5000,Left,green\n")

		ids := []string{"BadNumber", "BadSide", "SameSide", "BadColor", "NoHopper", "EmptyFI", "Exponent", "Fraction", "ShortRow"}
		for _, id := range ids {
			_, err := LoadSubject(path, id)
			assert.ErrorIs(t, err, domain.ErrMalformedSettings, id)
		}

		sheet, err := Load(path)
		require.NoError(t, err)
		assert.Len(t, sheet.Errors(), len(ids))
		assert.Equal(t, ids, sheet.Subjects())
	})

	t.Run("Missing columns", func(t *testing.T) {
		_, err := Parse(strings.NewReader("Subject,Hopper Duration (ms)\nZappa,3000\n"))
		assert.ErrorIs(t, err, domain.ErrMalformedSettings)
		assert.Contains(t, err.Error(), "Informative Side")
	})

	t.Run("Duplicate subject", func(t *testing.T) {
		_, err := Parse(strings.NewReader(header +
			"Zappa,3000,5000,Left,green,red,Right,blue,yellow\n" +
			"Zappa,3000,5000,Left,green,red,Right,blue,yellow\n"))
		assert.ErrorIs(t, err, domain.ErrMalformedSettings)
	})
}

func TestLoadSubject_DurationsAreDecimal(t *testing.T) {
	path := writeSheet(t, header+"LeadingZero,0500,0100,Left,green,red,Right,blue,yellow\n")

	cfg, err := LoadSubject(path, "LeadingZero")
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.HopperDuration)
	assert.Equal(t, 100*time.Millisecond, cfg.RejectionFIDuration)
}

func TestLoadSubject_X11ColorNames(t *testing.T) {
	path := writeSheet(t, header+"Zappa,3000,5000,Left,forestgreen,firebrick,Right,dodger blue,Gold\n")

	cfg, err := LoadSubject(path, "Zappa")
	require.NoError(t, err)
	assert.Equal(t, domain.StimulusColors{SPlus: "forestgreen", SMinus: "firebrick", S1: "dodger blue", S2: "Gold"}, cfg.Colors)
	assert.Equal(t, "#1e90ff", domain.ColorHex(cfg.Colors.S1))
}

func TestLoadSubject_TestFallback(t *testing.T) {
	cfg, err := LoadSubject(filepath.Join(t.TempDir(), "nope.csv"), TestSubject)
	require.NoError(t, err)
	assert.Equal(t, DefaultTestSubject(), cfg)
	assert.NoError(t, cfg.Validate())

	path := writeSheet(t, header+"TEST,1000,1000,Right,green,red,Left,blue,yellow\n")
	cfg, err = LoadSubject(path, TestSubject)
	require.NoError(t, err)
	assert.Equal(t, domain.SideRight, cfg.InformativeSide, "a TEST row wins over the built-in settings")
}

func TestParse_SkipsBlankRows(t *testing.T) {
	sheet, err := Parse(strings.NewReader(header + ",,,,,,,,\n" + "Zappa,3000,5000,Left,green,red,Right,blue,yellow\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Zappa"}, sheet.Subjects())
}
