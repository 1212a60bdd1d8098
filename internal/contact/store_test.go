// ABOUTME: Tests for the contact store and its fixed-record persistence.
// ABOUTME: Covers save/load round-trips, capacity bounds, prefix resolution, record layout.

package contact

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContact(seed byte, name string) *Contact {
	c := &Contact{
		Name:       name,
		Type:       TypeChat,
		Flags:      seed,
		OutPathLen: -1,
		LastAdvert: 1700000000 + uint32(seed),
	}
	for i := range c.PubKey {
		c.PubKey[i] = seed
	}
	return c
}

func TestRecordSize(t *testing.T) {
	assert.Equal(t, 141, RecordSize)

	var buf bytes.Buffer
	s := NewStore(4)
	require.True(t, s.Add(testContact(1, "alice")))
	require.NoError(t, s.Save(&buf))
	assert.Equal(t, RecordSize, buf.Len())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	src := NewStore(10)
	a := testContact(1, "alice")
	a.OutPathLen = 3
	copy(a.OutPath[:], []byte{9, 8, 7})
	require.True(t, src.Add(a))
	require.True(t, src.Add(testContact(2, "bob")))
	require.True(t, src.Add(testContact(3, "carol")))

	var buf bytes.Buffer
	require.NoError(t, src.Save(&buf))
	assert.Equal(t, 3*RecordSize, buf.Len())

	dst := NewStore(10)
	assert.Equal(t, 3, dst.Load(&buf))

	for _, want := range []*Contact{a, testContact(2, "bob"), testContact(3, "carol")} {
		got := dst.Lookup(want.PubKey)
		require.NotNil(t, got, want.Name)
		assert.Equal(t, *want, *got)
	}
}

func TestLoad_StopsAtCapacity(t *testing.T) {
	src := NewStore(10)
	require.True(t, src.Add(testContact(1, "a")))
	require.True(t, src.Add(testContact(2, "b")))
	require.True(t, src.Add(testContact(3, "c")))
	var buf bytes.Buffer
	require.NoError(t, src.Save(&buf))

	dst := NewStore(2)
	assert.Equal(t, 2, dst.Load(&buf))
	assert.Equal(t, 2, dst.Len())
}

func TestLoad_TruncatedTailDiscarded(t *testing.T) {
	src := NewStore(10)
	require.True(t, src.Add(testContact(1, "a")))
	require.True(t, src.Add(testContact(2, "b")))
	var buf bytes.Buffer
	require.NoError(t, src.Save(&buf))

	// Chop the second record in half.
	data := buf.Bytes()[:RecordSize+70]
	dst := NewStore(10)
	assert.Equal(t, 1, dst.Load(bytes.NewReader(data)))
}

func TestLoad_EmptyStream(t *testing.T) {
	s := NewStore(10)
	assert.Equal(t, 0, s.Load(bytes.NewReader(nil)))
}

func TestAdd_UpdatesByPubKey(t *testing.T) {
	s := NewStore(2)
	require.True(t, s.Add(testContact(1, "alice")))

	updated := testContact(1, "alice")
	updated.LastAdvert = 1800000000
	updated.OutPathLen = 2
	require.True(t, s.Add(updated))

	assert.Equal(t, 1, s.Len(), "same pubkey must not insert twice")
	got := s.Lookup(updated.PubKey)
	assert.Equal(t, uint32(1800000000), got.LastAdvert)
}

func TestAdd_RejectsWhenFull(t *testing.T) {
	s := NewStore(2)
	require.True(t, s.Add(testContact(1, "a")))
	require.True(t, s.Add(testContact(2, "b")))
	assert.False(t, s.Add(testContact(3, "c")))
	assert.Equal(t, 2, s.Len())

	// Updates still work at capacity.
	assert.True(t, s.Add(testContact(2, "b2")))
}

func TestResolveByPrefix(t *testing.T) {
	s := NewStore(10)
	require.True(t, s.Add(testContact(1, "Alice")))
	require.True(t, s.Add(testContact(2, "alan")))

	assert.Equal(t, "alan", s.ResolveByPrefix("ALAN").Name)
	assert.Nil(t, s.ResolveByPrefix("zeb"))
	assert.Nil(t, s.ResolveByPrefix(""))

	// Ambiguous prefix: reproducible winner within a run.
	first := s.ResolveByPrefix("al")
	require.NotNil(t, first)
	assert.Equal(t, first.Name, s.ResolveByPrefix("al").Name)
}

func TestMatchPrefix(t *testing.T) {
	s := NewStore(10)
	require.True(t, s.Add(testContact(1, "alice")))
	require.True(t, s.Add(testContact(2, "alan")))
	require.True(t, s.Add(testContact(3, "bob")))

	assert.Equal(t, []string{"alice", "alan"}, s.MatchPrefix("AL"))
	assert.Equal(t, []string{"alice", "alan", "bob"}, s.MatchPrefix(""))
	assert.Empty(t, s.MatchPrefix("x"))
}

func TestRecent(t *testing.T) {
	s := NewStore(10)
	old := testContact(1, "old")
	old.LastAdvert = 100
	mid := testContact(2, "mid")
	mid.LastAdvert = 200
	fresh := testContact(3, "fresh")
	fresh.LastAdvert = 300
	require.True(t, s.Add(old))
	require.True(t, s.Add(fresh))
	require.True(t, s.Add(mid))

	got := s.Recent(0)
	require.Len(t, got, 3)
	assert.Equal(t, "fresh", got[0].Name)
	assert.Equal(t, "mid", got[1].Name)
	assert.Equal(t, "old", got[2].Name)

	assert.Len(t, s.Recent(2), 2)
}

func TestName_FullWidthField(t *testing.T) {
	// A 31-byte name plus NUL fills the field; a longer one is truncated
	// by the fixed-width writer and must still load.
	long := "abcdefghijklmnopqrstuvwxyz012345" // 32 bytes
	src := NewStore(2)
	require.True(t, src.Add(testContact(1, long)))
	var buf bytes.Buffer
	require.NoError(t, src.Save(&buf))
	assert.Equal(t, RecordSize, buf.Len())

	dst := NewStore(2)
	require.Equal(t, 1, dst.Load(&buf))
	got := dst.Lookup(testContact(1, "").PubKey)
	require.NotNil(t, got)
	assert.Equal(t, long[:NameFieldLen], got.Name)
}

func TestLastAdvertAge(t *testing.T) {
	c := testContact(1, "a")
	c.LastAdvert = 1000

	assert.Equal(t, 2*time.Minute, c.LastAdvertAge(1120))
	assert.Equal(t, time.Duration(0), c.LastAdvertAge(1000))
	// a sender clock running ahead yields a negative age
	assert.Equal(t, -30*time.Second, c.LastAdvertAge(970))
}

func TestReservedFieldsZeroOnWrite(t *testing.T) {
	s := NewStore(2)
	require.True(t, s.Add(testContact(5, "x")))
	var buf bytes.Buffer
	require.NoError(t, s.Save(&buf))

	rec := buf.Bytes()
	// reserved byte + reserved uint32 sit after pubkey, name, type, flags.
	off := PubKeySize + NameFieldLen + 2
	assert.Equal(t, []byte{0, 0, 0, 0, 0}, rec[off:off+5])
}
