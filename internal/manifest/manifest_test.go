package manifest

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/inkwell-app/inkwell-sync/internal/errors"
)

func i64(v int64) *int64 { return &v }

func str(v string) *string { return &v }

func testItem(id string) Item {
	return Item{
		ID:            id,
		Type:          TypeEntry,
		Path:          "entries/2024/03/" + id + ".json",
		LocalModified: 1000,
		LocalHash:     "abc",
		Size:          42,
		SyncStatus:    StatusNeedsSync,
		LastSynced:    900,
		Metadata:      &Metadata{ParentID: "journal-1"},
	}
}

// --- Encode / Decode ---

func TestEncodeDecode_RoundTrip(t *testing.T) {
	m := New("cfg-1")
	m.LastUpdated = 5000

	withRemote := testItem("e1")
	withRemote.SetRemote("def", 4000)
	m.Add(withRemote)
	m.Add(testItem("e2"))

	data, err := m.Encode()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, "cfg-1", got.ConfigID)
	assert.Equal(t, int64(5000), got.LastUpdated)
	assert.Equal(t, CurrentVersion, got.Version)
	require.Len(t, got.Items, 2)

	e1 := got.Items["e1"]
	require.NotNil(t, e1.RemoteModified)
	assert.Equal(t, int64(4000), *e1.RemoteModified)
	require.NotNil(t, e1.RemoteHash)
	assert.Equal(t, "def", *e1.RemoteHash)

	// Never-seen-remotely must survive as null, not zero.
	e2 := got.Items["e2"]
	assert.Nil(t, e2.RemoteModified)
	assert.Nil(t, e2.RemoteHash)
}

func TestEncode_EmitsNullRemoteFields(t *testing.T) {
	m := New("cfg-1")
	m.Add(testItem("e1"))

	data, err := m.Encode()
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))

	var items map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["items"], &items))

	assert.Equal(t, "null", string(items["e1"]["remoteModified"]))
	assert.Equal(t, "null", string(items["e1"]["remoteHash"]))
}

func TestDecode_RejectsNewerVersion(t *testing.T) {
	m := New("cfg-1")
	m.Version = CurrentVersion + 1

	data, err := json.Marshal(m)
	require.NoError(t, err)

	_, err = Decode(data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrManifestVersion))
	assert.Equal(t, apperrors.KindSerialization, apperrors.KindOf(err))
}

func TestDecode_RejectsMalformedJSON(t *testing.T) {
	_, err := Decode([]byte("{not json"))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindSerialization, apperrors.KindOf(err))
}

func TestDecode_NilItemsBecomesEmptyMap(t *testing.T) {
	got, err := Decode([]byte(`{"configId":"cfg-1","version":1}`))
	require.NoError(t, err)
	assert.NotNil(t, got.Items)
	assert.Empty(t, got.Items)
}

// --- Clone ---

func TestClone_IsDeep(t *testing.T) {
	m := New("cfg-1")

	it := testItem("e1")
	it.SetRemote("def", 4000)
	m.Add(it)

	c := m.Clone()

	ci := c.Items["e1"]
	*ci.RemoteModified = 9999
	ci.Metadata.ParentID = "changed"

	orig := m.Items["e1"]
	assert.Equal(t, int64(4000), *orig.RemoteModified)
	assert.Equal(t, "journal-1", orig.Metadata.ParentID)
}

// --- SortedIDs ---

func TestSortedIDs_LexicalOrder(t *testing.T) {
	m := New("cfg-1")
	m.Add(testItem("c"))
	m.Add(testItem("a"))
	m.Add(testItem("b"))

	assert.Equal(t, []string{"a", "b", "c"}, m.SortedIDs())
}

// --- Item.NeedsSync ---

func TestNeedsSync(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want bool
	}{
		{
			name: "no remote version",
			item: Item{LocalModified: 100, LocalHash: "a", SyncStatus: StatusSynced},
			want: true,
		},
		{
			name: "local strictly newer",
			item: Item{LocalModified: 200, RemoteModified: i64(100), LocalHash: "a", RemoteHash: str("a"), SyncStatus: StatusSynced},
			want: true,
		},
		{
			name: "hashes differ",
			item: Item{LocalModified: 100, RemoteModified: i64(100), LocalHash: "a", RemoteHash: str("b"), SyncStatus: StatusSynced},
			want: true,
		},
		{
			name: "explicitly marked",
			item: Item{LocalModified: 100, RemoteModified: i64(200), LocalHash: "a", RemoteHash: str("a"), SyncStatus: StatusNeedsSync},
			want: true,
		},
		{
			name: "in sync",
			item: Item{LocalModified: 100, RemoteModified: i64(100), LocalHash: "a", RemoteHash: str("a"), SyncStatus: StatusSynced},
			want: false,
		},
		{
			name: "remote newer, same hash",
			item: Item{LocalModified: 100, RemoteModified: i64(200), LocalHash: "a", RemoteHash: str("a"), SyncStatus: StatusSynced},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.NeedsSync())
		})
	}
}

func TestSetRemote(t *testing.T) {
	it := testItem("e1")
	it.SetRemote("hash-x", 777)

	require.NotNil(t, it.RemoteHash)
	assert.Equal(t, "hash-x", *it.RemoteHash)
	require.NotNil(t, it.RemoteModified)
	assert.Equal(t, int64(777), *it.RemoteModified)
}
