package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cory-johannsen/arianrhod/internal/game/dice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const actorDoc = `{
  "_id": "6f1c1d2e-8a4b-4c3d-9e5f-0a1b2c3d4e5f",
  "name": "Aria",
  "type": "character",
  "system": {
    "attributes": {"level": {"value": 2}, "HP": {"value": 10}, "MP": {"value": 5}},
    "abilities": {
      "str": {"base": 6, "point": 1}, "dex": {"base": 6}, "agi": {"base": 6},
      "int": {"base": 6}, "per": {"base": 6}, "mnd": {"base": 6}, "luk": {"base": 6}
    },
    "combatant": {"hit": {"key": "dex"}, "movement": {"key": "str", "mod": "2"}},
    "actions": {"trapDetect": {"key": "per", "dice": 1}}
  },
  "items": [
    {"_id": "7a2b3c4d-5e6f-4a1b-8c9d-0e1f2a3b4c5d", "name": "Warrior", "type": "mainClass",
     "system": {"abilities": {"str": {"base": 3}}, "attributes": {"baseHP": {"value": 13}, "riseHP": {"value": 3}}}}
  ]
}`

func writeDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "actor.json")
	require.NoError(t, os.WriteFile(path, []byte(actorDoc), 0644))
	return path
}

func opts(t *testing.T, format, lang string) options {
	return options{
		path:     writeDoc(t),
		template: "../../content/template.yaml",
		format:   format,
		lang:     lang,
		source:   dice.NewSeededSource(7),
	}
}

func TestRun_View(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(zaptest.NewLogger(t), opts(t, "view", "en-US"), &out))

	var v struct {
		Name      string `json:"name"`
		Abilities []struct {
			Key   string `json:"key"`
			Value int    `json:"value"`
		} `json:"abilities"`
		HP struct {
			Max int `json:"max"`
		} `json:"hp"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))
	assert.Equal(t, "Aria", v.Name)
	require.NotEmpty(t, v.Abilities)
	assert.Equal(t, "str", v.Abilities[0].Key)
	assert.Equal(t, 10, v.Abilities[0].Value)
	assert.Equal(t, 10+13+3, v.HP.Max, "str value + baseHP + riseHP*(lvl-1)")
}

func TestRun_HTML(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(zaptest.NewLogger(t), opts(t, "html", "ko-KR"), &out))
	assert.Contains(t, out.String(), `<h1 class="charname">Aria</h1>`)
	assert.Contains(t, out.String(), "근력")
}

func TestRun_UnknownFormat(t *testing.T) {
	err := run(zaptest.NewLogger(t), opts(t, "xml", "en-US"), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRun_Roll(t *testing.T) {
	type posted struct {
		Speaker string `json:"speaker"`
		Flavor  string `json:"flavor"`
		Roll    struct {
			Expression string `json:"expression"`
			Dice       []int  `json:"dice"`
		} `json:"roll"`
	}
	rollOnce := func() posted {
		o := opts(t, "view", "en-US")
		o.roll = "combatant.movement"
		var out bytes.Buffer
		require.NoError(t, run(zaptest.NewLogger(t), o, &out))
		var p posted
		require.NoError(t, json.Unmarshal(out.Bytes(), &p))
		return p
	}

	first, second := rollOnce(), rollOnce()
	assert.Equal(t, first.Roll, second.Roll, "same seed rolls the same dice")
	assert.Equal(t, "Aria", first.Speaker)
	assert.Equal(t, "Movement", first.Flavor)
	// str total 3 + mod 2 + 5
	assert.Equal(t, "2D6+10", first.Roll.Expression)
	assert.Len(t, first.Roll.Dice, 2)
}

func TestRun_RollUnknownStat(t *testing.T) {
	o := opts(t, "view", "en-US")
	o.roll = "combatant.flight"
	assert.Error(t, run(zaptest.NewLogger(t), o, &bytes.Buffer{}))
}
