package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSection struct {
	id          string
	data        map[string]interface{}
	validateErr error
}

func (m *mockSection) ID() string                                { return m.id }
func (m *mockSection) Title() string                             { return m.id }
func (m *mockSection) Description() string                       { return "" }
func (m *mockSection) Data() map[string]interface{}              { return m.data }
func (m *mockSection) SetData(data map[string]interface{}) error { m.data = data; return nil }
func (m *mockSection) Validate() error                           { return m.validateErr }
func (m *mockSection) Reset()                                    { m.data = map[string]interface{}{} }

type mockStore struct {
	sections map[string]map[string]interface{}
	loadErr  error
	saveErr  error
	saves    int
}

func newMockStore() *mockStore {
	return &mockStore{sections: make(map[string]map[string]interface{})}
}

func (m *mockStore) Load() error { return m.loadErr }

func (m *mockStore) Save() error {
	m.saves++
	return m.saveErr
}

func (m *mockStore) GetSection(id string) (map[string]interface{}, error) {
	return m.sections[id], nil
}

func (m *mockStore) SetSection(id string, data map[string]interface{}) error {
	m.sections[id] = data
	return nil
}

func (m *mockStore) GetAll() (map[string]map[string]interface{}, error) {
	return m.sections, nil
}

func (m *mockStore) SetAll(data map[string]map[string]interface{}) error {
	m.sections = data
	return nil
}

func TestManager_Register(t *testing.T) {
	m := NewManager(newMockStore())
	require.NoError(t, m.RegisterSection(&mockSection{id: "first"}))
	require.NoError(t, m.RegisterSection(&mockSection{id: "second"}))
	assert.Error(t, m.RegisterSection(&mockSection{id: "first"}))

	sections := m.GetSections()
	require.Len(t, sections, 2)
	assert.Equal(t, "first", sections[0].ID())
	assert.Equal(t, "second", sections[1].ID())

	_, ok := m.GetSection("missing")
	assert.False(t, ok)
}

func TestManager_LoadAll(t *testing.T) {
	store := newMockStore()
	store.sections["a"] = map[string]interface{}{"key": "value"}
	m := NewManager(store)
	a := &mockSection{id: "a"}
	b := &mockSection{id: "b", data: map[string]interface{}{"keep": true}}
	require.NoError(t, m.RegisterSection(a))
	require.NoError(t, m.RegisterSection(b))

	require.NoError(t, m.LoadAll())
	assert.Equal(t, "value", a.data["key"])
	assert.Equal(t, true, b.data["keep"], "sections absent from the store keep their values")

	store.loadErr = errors.New("disk gone")
	assert.ErrorContains(t, m.LoadAll(), "disk gone")
}

func TestManager_SaveAll(t *testing.T) {
	store := newMockStore()
	m := NewManager(store)
	require.NoError(t, m.RegisterSection(&mockSection{id: "a", data: map[string]interface{}{"k": 1}}))
	require.NoError(t, m.SaveAll())
	assert.Equal(t, 1, store.sections["a"]["k"])
	assert.Equal(t, 1, store.saves)

	bad := &mockSection{id: "bad", validateErr: fmt.Errorf("rate out of range")}
	require.NoError(t, m.RegisterSection(bad))
	assert.ErrorContains(t, m.SaveAll(), "rate out of range")
	assert.Equal(t, 1, store.saves, "nothing is written when a section is invalid")

	bad.validateErr = nil
	store.saveErr = errors.New("read-only")
	assert.ErrorContains(t, m.SaveAll(), "read-only")
}

func TestManager_SaveSection(t *testing.T) {
	store := newMockStore()
	m := NewManager(store)
	require.NoError(t, m.RegisterSection(&mockSection{id: "a", data: map[string]interface{}{"k": "v"}}))

	require.NoError(t, m.SaveSection("a"))
	assert.Equal(t, "v", store.sections["a"]["k"])
	assert.Error(t, m.SaveSection("missing"))
}

func TestManager_ResetAll(t *testing.T) {
	m := NewManager(newMockStore())
	s := &mockSection{id: "a", data: map[string]interface{}{"k": "v"}}
	require.NoError(t, m.RegisterSection(s))
	m.ResetAll()
	assert.Empty(t, s.data)
}

func TestManager_ConcurrentRegister(t *testing.T) {
	m := NewManager(newMockStore())
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.RegisterSection(&mockSection{id: fmt.Sprintf("s%d", i)})
			m.GetSections()
		}()
	}
	wg.Wait()
	assert.Len(t, m.GetSections(), 10)
}

func TestInitialize(t *testing.T) {
	t.Cleanup(resetGlobal)
	resetGlobal()
	assert.Nil(t, GetFeatures())
	assert.Panics(t, func() { Global() })

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, Initialize(path))
	require.True(t, IsInitialized())

	features := GetFeatures()
	require.NotNil(t, features)
	assert.Equal(t, DefaultFeatureFlags(), features.Flags())
	require.NotNil(t, GetSpeech())
	require.NotNil(t, GetLLM())
	require.NotNil(t, GetUsage())

	_, err := features.Toggle(FeatureVoiceOutput)
	require.NoError(t, err)
	require.NoError(t, Global().SaveSection(SectionIDFeatures))

	resetGlobal()
	require.NoError(t, Initialize(path))
	assert.True(t, GetFeatures().Flags().VoiceOutput)
}

func resetGlobal() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalManager = nil
}
