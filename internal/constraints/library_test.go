package constraints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/monthroster/pkg/rules"
)

func TestGetLibrary_CoversTableKeys(t *testing.T) {
	lib := GetLibrary()
	keys := rules.TableKeys()
	require.Len(t, lib, len(keys))

	seen := make(map[string]bool, len(lib))
	for _, d := range lib {
		assert.False(t, seen[d.Key], "重复的键 %s", d.Key)
		seen[d.Key] = true
		assert.NotEmpty(t, d.DisplayName, d.Key)
		assert.Contains(t, []string{KindHard, KindSoft, KindSetting}, d.Kind, d.Key)
		if d.Kind != KindSetting {
			assert.NotEmpty(t, d.Checks, "%s 应关联校验项", d.Key)
		}
	}
	for _, k := range keys {
		assert.True(t, seen[k], "缺少 %s 的定义", k)
	}
}

func TestGetLibrary_Defaults(t *testing.T) {
	defaults := rules.Default().ToTable()
	for _, d := range GetLibrary() {
		assert.Equal(t, defaults[d.Key], d.Default, d.Key)
	}
}

func TestLookup(t *testing.T) {
	d, ok := Lookup("max_consecutive_work_days")
	require.True(t, ok)
	assert.Equal(t, KindHard, d.Kind)

	_, ok = Lookup("no_such_key")
	assert.False(t, ok)
}
