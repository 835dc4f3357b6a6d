package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatflowers/contactbook/internal/app/service/contact"
	"github.com/fatflowers/contactbook/internal/app/service/interaction"
	"github.com/fatflowers/contactbook/internal/app/service/note"
	"github.com/fatflowers/contactbook/internal/app/service/statistics"
	"github.com/fatflowers/contactbook/internal/app/service/tag"
	models "github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/types"
)

// fakeResource keeps rows per user so cross-user access can be checked.
type fakeResource[T any, In any] struct {
	rows   map[string]map[string]*T
	build  func(id string, in *In) *T
	lastIn *In
	nextID int
}

func newFakeResource[T, In any](build func(id string, in *In) *T) *fakeResource[T, In] {
	return &fakeResource[T, In]{rows: map[string]map[string]*T{}, build: build}
}

func (f *fakeResource[T, In]) List(_ context.Context, userID string) ([]*T, error) {
	var out []*T
	for _, r := range f.rows[userID] {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeResource[T, In]) Create(_ context.Context, userID string, in *In) (*T, error) {
	f.lastIn = in
	f.nextID++
	id := fmt.Sprintf("id-%d", f.nextID)
	row := f.build(id, in)
	if f.rows[userID] == nil {
		f.rows[userID] = map[string]*T{}
	}
	f.rows[userID][id] = row
	return row, nil
}

func (f *fakeResource[T, In]) Update(_ context.Context, userID, id string, in *In) (*T, error) {
	f.lastIn = in
	if _, ok := f.rows[userID][id]; !ok {
		return nil, types.ErrNotFound
	}
	row := f.build(id, in)
	f.rows[userID][id] = row
	return row, nil
}

func (f *fakeResource[T, In]) Delete(_ context.Context, userID, id string) error {
	if _, ok := f.rows[userID][id]; !ok {
		return types.ErrNotFound
	}
	delete(f.rows[userID], id)
	return nil
}

func (f *fakeResource[T, In]) Get(_ context.Context, userID, id string) (*T, error) {
	if r, ok := f.rows[userID][id]; ok {
		return r, nil
	}
	return nil, types.ErrNotFound
}

type fakeContacts struct {
	*fakeResource[models.Contact, contact.Input]
}

type fakeInteractions struct {
	*fakeResource[models.Interaction, interaction.Input]
}

func (f fakeInteractions) ListByContact(_ context.Context, userID, contactID string) ([]*models.Interaction, error) {
	if contactID == "missing" {
		return nil, types.ErrNotFound
	}
	return nil, nil
}

type fakeDashboard struct{}

func (fakeDashboard) Dashboard(context.Context, string) (*statistics.DashboardStats, error) {
	return &statistics.DashboardStats{TotalContacts: 3, FollowUpsDue: 1, ContactedContacts: 2}, nil
}

func newContactBookEngine(t *testing.T, userID string, contacts fakeContacts) http.Handler {
	r := newTestEngine(t)
	api := r.Group("/api", asUser(userID))
	RegisterContactBookRoutes(api,
		contacts,
		fakeInteractions{newFakeResource(func(id string, in *interaction.Input) *models.Interaction {
			return &models.Interaction{ID: id, ContactID: in.ContactID, Type: in.Type}
		})},
		newFakeResource(func(id string, in *note.Input) *models.Note { return &models.Note{ID: id, Content: in.Content} }),
		newFakeResource(func(id string, in *tag.Input) *models.Tag { return &models.Tag{ID: id, Name: in.Name} }),
		fakeDashboard{},
		nopLog,
	)
	return r
}

func newFakeContacts() fakeContacts {
	return fakeContacts{newFakeResource(func(id string, in *contact.Input) *models.Contact {
		return &models.Contact{ID: id, FirstName: in.FirstName, LastName: in.LastName}
	})}
}

func TestContacts_CRUD(t *testing.T) {
	contacts := newFakeContacts()
	r := newContactBookEngine(t, "u1", contacts)

	w := doJSON(r, http.MethodGet, "/api/contacts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(decodeEnvelope(t, w).Data))

	w = doJSON(r, http.MethodPost, "/api/contacts", map[string]any{
		"first_name": "Ann", "last_name": "Lee", "email": "ann@example.com",
		"tag_ids": []string{"0190a6f4-1c6e-7c3e-9a8b-1234567890ab"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"first_name":"Ann"`)
	assert.Equal(t, []string{"0190a6f4-1c6e-7c3e-9a8b-1234567890ab"}, contacts.lastIn.TagIDs)

	w = doJSON(r, http.MethodGet, "/api/contacts/id-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPut, "/api/contacts/id-1", map[string]any{"first_name": "Anne", "last_name": "Lee"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"first_name":"Anne"`)

	w = doJSON(r, http.MethodDelete, "/api/contacts/id-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = doJSON(r, http.MethodGet, "/api/contacts/id-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40400, decodeEnvelope(t, w).Code)
}

func TestContacts_Validation(t *testing.T) {
	r := newContactBookEngine(t, "u1", newFakeContacts())

	for name, body := range map[string]any{
		"blank first name": map[string]any{"first_name": "   ", "last_name": "x"},
		"bad email":        map[string]any{"first_name": "Ann", "email": "nope"},
		"bad tag id":       map[string]any{"first_name": "Ann", "tag_ids": []string{"1"}},
		"not json":         "{",
	} {
		t.Run(name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/api/contacts", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestContacts_CrossUserIsNotFound(t *testing.T) {
	contacts := newFakeContacts()
	_, err := contacts.Create(t.Context(), "owner", &contact.Input{FirstName: "Ann"})
	require.NoError(t, err)

	r := newContactBookEngine(t, "intruder", contacts)
	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodGet, "/api/contacts/id-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodPut, "/api/contacts/id-1", map[string]any{"first_name": "x"}).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodDelete, "/api/contacts/id-1", nil).Code)
}

func TestInteractions_Routes(t *testing.T) {
	r := newContactBookEngine(t, "u1", newFakeContacts())

	w := doJSON(r, http.MethodPost, "/api/interactions", map[string]any{
		"contact_id": "0190a6f4-1c6e-7c3e-9a8b-1234567890ab", "type": "call",
		"date": "2024-03-01T10:00:00Z", "description": "intro", "duration": 30,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(r, http.MethodPost, "/api/interactions", map[string]any{
		"contact_id": "0190a6f4-1c6e-7c3e-9a8b-1234567890ab", "type": "call", "description": "no date",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/api/interactions/contact/abc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(decodeEnvelope(t, w).Data))

	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodGet, "/api/interactions/contact/missing", nil).Code)
}

func TestTagsAndNotes_Validation(t *testing.T) {
	r := newContactBookEngine(t, "u1", newFakeContacts())

	assert.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/api/tags", map[string]any{"name": "vip", "color": "#ff0000"}).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPost, "/api/tags", map[string]any{"name": "vip", "color": "red"}).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPost, "/api/tags", map[string]any{"name": ""}).Code)

	assert.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/api/notes", map[string]any{"content": "hello"}).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPost, "/api/notes", map[string]any{"content": " "}).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPost, "/api/notes", map[string]any{"content": "x", "contact_id": "nope"}).Code)
}

func TestDashboardStats(t *testing.T) {
	r := newContactBookEngine(t, "u1", newFakeContacts())

	w := doJSON(r, http.MethodGet, "/api/dashboard/stats", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"total_contacts":3,"follow_ups_due":1,"contacted_contacts":2,"total_interactions":0,"total_notes":0}`,
		string(decodeEnvelope(t, w).Data))
}
