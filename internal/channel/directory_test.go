// ABOUTME: Tests for the channel directory and key derivation.
// ABOUTME: Covers slot lifecycle, runtime rebuild, resolution, capacity, and hashtag keys.

package channel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zeroKey32 = "0000000000000000000000000000000000000000000000000000000000000000"

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	var slots Slots
	d := NewDirectory(&slots)
	require.NoError(t, d.Rebuild())
	return d
}

func TestRebuild_BuiltinAlwaysFirst(t *testing.T) {
	d := newTestDirectory(t)

	require.Equal(t, 1, d.NumRuntime())
	rc := d.Runtime(0)
	require.NotNil(t, rc)
	assert.Equal(t, BuiltinName, rc.Name)
	assert.Len(t, rc.Key, 16)
	assert.Equal(t, "izOH6cXN6mrJ5e26oRXNcg==", rc.PSK)
	assert.Equal(t, -1, rc.SlotIndex)
}

func TestAddOrUpdate_ClaimsFirstInactiveSlot(t *testing.T) {
	d := newTestDirectory(t)

	require.NoError(t, d.AddOrUpdate("work", zeroKey32))
	require.NoError(t, d.Rebuild())

	assert.Equal(t, 2, d.NumRuntime())
	assert.Equal(t, "work", d.NameOf(1))
	assert.Equal(t, make([]byte, 32), d.Runtime(1).Key)
}

func TestAddOrUpdate_ReplacesKeyInPlace(t *testing.T) {
	d := newTestDirectory(t)

	require.NoError(t, d.AddOrUpdate("work", zeroKey32))
	other := strings.Repeat("ab", 16)
	require.NoError(t, d.AddOrUpdate("WORK", other))

	require.NoError(t, d.Rebuild())
	assert.Equal(t, 2, d.NumRuntime(), "update must not claim a second slot")
	assert.Len(t, d.Runtime(1).Key, 16)
}

func TestAddOrUpdate_Full(t *testing.T) {
	d := newTestDirectory(t)

	for i := 0; i < MaxChannels-1; i++ {
		require.NoError(t, d.AddOrUpdate("chan"+string(rune('a'+i)), zeroKey32))
	}
	err := d.AddOrUpdate("overflow", zeroKey32)
	assert.ErrorIs(t, err, ErrDirectoryFull)

	// Existing slots untouched.
	require.NoError(t, d.Rebuild())
	assert.Equal(t, MaxChannels, d.NumRuntime())
	assert.Equal(t, -1, d.Resolve("overflow"))
}

func TestAddOrUpdate_Validation(t *testing.T) {
	d := newTestDirectory(t)

	assert.ErrorIs(t, d.AddOrUpdate(strings.Repeat("x", MaxNameLen+1), zeroKey32), ErrNameTooLong)
	assert.ErrorIs(t, d.AddOrUpdate("Public", zeroKey32), ErrReservedName)
	assert.ErrorIs(t, d.AddOrUpdate("PUB", zeroKey32), ErrReservedName)
	assert.Error(t, d.AddOrUpdate("bad", "zz"))
	assert.Error(t, d.AddOrUpdate("bad", strings.Repeat("0", 48)))
}

func TestRemove_ReusesSlot(t *testing.T) {
	d := newTestDirectory(t)

	require.NoError(t, d.AddOrUpdate("alpha", zeroKey32))
	require.NoError(t, d.AddOrUpdate("beta", zeroKey32))

	assert.True(t, d.Remove("ALPHA"))
	assert.False(t, d.Remove("alpha"), "already removed")
	assert.False(t, d.Remove("Public"), "built-in cannot be removed")

	// Freed slot is claimed by the next add.
	require.NoError(t, d.AddOrUpdate("gamma", zeroKey32))
	assert.Equal(t, "gamma", d.Slot(0).Name)
}

func TestResolve_CaseInsensitive(t *testing.T) {
	d := newTestDirectory(t)
	require.NoError(t, d.AddOrUpdate("work", zeroKey32))
	require.NoError(t, d.Rebuild())

	assert.Equal(t, 0, d.Resolve("public"))
	assert.Equal(t, 0, d.Resolve("PUB"))
	assert.Equal(t, 0, d.Resolve("Public"))
	assert.Equal(t, d.Resolve("work"), d.Resolve("WORK"))
	assert.Equal(t, 1, d.Resolve("WoRk"))
	assert.Equal(t, -1, d.Resolve("nope"))
}

func TestResolve_DuplicateNamesEarliestWins(t *testing.T) {
	var slots Slots
	slots[0] = Slot{Name: "dup", KeyHex: zeroKey32, Active: true}
	slots[1] = Slot{Name: "DUP", KeyHex: strings.Repeat("11", 16), Active: true}
	d := NewDirectory(&slots)
	require.NoError(t, d.Rebuild())

	assert.Equal(t, 1, d.Resolve("dup"))
}

func TestRebuild_SkipsUnderivableSlots(t *testing.T) {
	var slots Slots
	slots[0] = Slot{Name: "broken", KeyHex: "nothex", Active: true}
	slots[1] = Slot{Name: "good", KeyHex: zeroKey32, Active: true}
	d := NewDirectory(&slots)
	require.NoError(t, d.Rebuild())

	assert.Equal(t, 2, d.NumRuntime(), "broken slot occupies no runtime index")
	assert.Equal(t, "good", d.NameOf(1))
	assert.Equal(t, -1, d.Resolve("broken"))

	// The slot itself still exists and autocompletes.
	assert.Contains(t, d.Names(), "broken")
}

func TestRebuild_HashtagChannel(t *testing.T) {
	var slots Slots
	slots[0] = Slot{Name: "#general", Active: true}
	d := NewDirectory(&slots)
	require.NoError(t, d.Rebuild())

	rc := d.Runtime(1)
	require.NotNil(t, rc)
	assert.Equal(t, "#general", rc.Name)
	assert.Len(t, rc.Key, 16)
	assert.Equal(t, EncodePSK(rc.Key), rc.PSK)
}

func TestDeriveHashtagKey_Deterministic(t *testing.T) {
	a := DeriveHashtagKey("#general")
	b := DeriveHashtagKey("#general")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, DeriveHashtagKey("#other"))

	// Two independent directories derive identical runtime keys.
	var s1, s2 Slots
	s1[0] = Slot{Name: "#general", Active: true}
	s2[2] = Slot{Name: "#general", Active: true}
	d1, d2 := NewDirectory(&s1), NewDirectory(&s2)
	require.NoError(t, d1.Rebuild())
	require.NoError(t, d2.Rebuild())
	assert.Equal(t, d1.Runtime(1).Key, d2.Runtime(1).Key)
}

func TestRuntime_NeverExceedsMaxChannels(t *testing.T) {
	var slots Slots
	for i := range slots {
		slots[i] = Slot{Name: "c" + string(rune('0'+i)), KeyHex: zeroKey32, Active: true}
	}
	d := NewDirectory(&slots)
	require.NoError(t, d.Rebuild())
	assert.Equal(t, MaxChannels, d.NumRuntime())
}

func TestSetMuted(t *testing.T) {
	var slots Slots
	slots[0] = Slot{Name: "work", KeyHex: zeroKey32, Active: true}
	d := NewDirectory(&slots)
	require.NoError(t, d.Rebuild())

	require.True(t, d.SetMuted(1, true))
	assert.True(t, d.IsMuted(1))
	assert.True(t, slots[0].Muted, "slot flag is the persisted state")

	require.True(t, d.SetMuted(1, false))
	assert.False(t, slots[0].Muted)

	require.True(t, d.SetMuted(0, true))
	assert.True(t, d.IsMuted(0))
	assert.False(t, slots[0].Muted, "built-in mute never touches slots")

	assert.False(t, d.SetMuted(9, true))
}
