package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/custadmin/internal/models"
	"github.com/iudanet/custadmin/pkg/api"
)

const (
	annID = "6f1c2a7e-3b1d-4f0a-9a52-0c1e7d9b4a01"
	bobID = "6f1c2a7e-3b1d-4f0a-9a52-0c1e7d9b4a02"
	gonID = "6f1c2a7e-3b1d-4f0a-9a52-0c1e7d9b4a03"
)

type profileFixture struct {
	handler   *ProfileHandler
	customers *mockCustomerStorage
	profiles  *mockProfileStorage
	audit     *mockAuditStorage
}

func newProfileFixture() *profileFixture {
	f := &profileFixture{
		customers: newMockCustomerStorage(
			personal(annID, "Ann", "Lee"),
			personal(bobID, "Bob", "Ray"),
			deletedBy(personal(gonID, "Gon", "Vale"), "admin-1"),
		),
		profiles: &mockProfileStorage{},
		audit:    &mockAuditStorage{},
	}
	f.handler = NewProfileHandler(setupTestLogger(), f.customers, f.profiles, f.audit)
	return f
}

func (f *profileFixture) post(t *testing.T, h http.HandlerFunc, id, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := postJSON(t, "/api/v1/customers/"+id+"/"+path, body)
	h(w, withID(withCaller(req, "op-1", models.RoleOperator), id))
	return w
}

func (f *profileFixture) get(h http.HandlerFunc, id string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, withID(httptest.NewRequest(http.MethodGet, "/api/v1/customers/"+id, nil), id))
	return w
}

func TestProfileHandler_Addresses(t *testing.T) {
	f := newProfileFixture()

	w := f.post(t, f.handler.AddAddress, annID, "addresses", api.AddressRequest{
		Type:         "mailing",
		AddressLine1: "99 Sukhumvit Rd",
		City:         "Bangkok",
		Country:      " th ",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Address
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.Equal(t, models.AddressMailing, created.Type)
	assert.Equal(t, "TH", created.Country)
	assert.Equal(t, annID, created.CustomerID)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, models.AuditAddAddress, f.audit.entries[0].Action)
	assert.Empty(t, f.audit.entries[0].Changes)

	w = f.get(f.handler.ListAddresses, annID)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Address
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Len(t, list, 1)

	// пустой список отдается как [], а не null
	w = f.get(f.handler.ListAddresses, bobID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestProfileHandler_Addresses_Errors(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		body     api.AddressRequest
		wantCode int
		wantErr  string
	}{
		{
			name:     "missing city",
			id:       annID,
			body:     api.AddressRequest{Type: "HQ", AddressLine1: "1 Main St", Country: "TH"},
			wantCode: http.StatusBadRequest,
			wantErr:  "city",
		},
		{
			name:     "unknown type",
			id:       annID,
			body:     api.AddressRequest{Type: "BEACH", AddressLine1: "1 Main St", City: "Krabi", Country: "TH"},
			wantCode: http.StatusBadRequest,
			wantErr:  "type",
		},
		{
			name:     "deleted customer",
			id:       gonID,
			body:     api.AddressRequest{Type: "HQ", AddressLine1: "1 Main St", City: "Krabi", Country: "TH"},
			wantCode: http.StatusNotFound,
			wantErr:  "Customer not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProfileFixture()
			w := f.post(t, f.handler.AddAddress, tt.id, "addresses", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, decodeError(t, w), tt.wantErr)
			assert.Empty(t, f.profiles.addresses)
		})
	}
}

func TestProfileHandler_Identities(t *testing.T) {
	f := newProfileFixture()
	expiry := time.Date(2031, 5, 1, 0, 0, 0, 0, time.UTC)

	w := f.post(t, f.handler.AddIdentity, annID, "identities", api.IdentityRequest{
		Type:            "NATIONAL_ID",
		Number:          "1-1017-00207-03-0",
		IssuanceCountry: "th",
		ExpiryDate:      &expiry,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Identity
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.Equal(t, "1101700207030", created.Number)
	assert.Equal(t, "TH", created.IssuanceCountry)
	require.NotNil(t, created.ExpiryDate)
	assert.True(t, expiry.Equal(*created.ExpiryDate))

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, models.AuditAddIdentity, f.audit.entries[0].Action)
	assert.NotContains(t, f.audit.entries[0].Changes, "1101700207030")

	// тот же документ в другом написании
	w = f.post(t, f.handler.AddIdentity, bobID, "identities", api.IdentityRequest{
		Type:            "NATIONAL_ID",
		Number:          "1101700207030",
		IssuanceCountry: "TH",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Identity already exists", decodeError(t, w))

	w = f.post(t, f.handler.AddIdentity, bobID, "identities", api.IdentityRequest{
		Type:            "NATIONAL_ID",
		Number:          "1101700207031",
		IssuanceCountry: "TH",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w), "checksum")

	// контрольная сумма проверяется только для тайских документов
	w = f.post(t, f.handler.AddIdentity, bobID, "identities", api.IdentityRequest{
		Type:            "PASSPORT",
		Number:          "AB1234567",
		IssuanceCountry: "GB",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = f.get(f.handler.ListIdentities, bobID)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Identity
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, models.IdentityPassport, list[0].Type)

	w = f.get(f.handler.ListIdentities, gonID)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfileHandler_Relationships(t *testing.T) {
	f := newProfileFixture()

	w := f.post(t, f.handler.AddRelationship, annID, "relationships",
		api.RelationshipRequest{ToCustomerID: bobID, Role: "spouse"})
	require.Equal(t, http.StatusCreated, w.Code)

	var rel models.Relationship
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rel))
	assert.Equal(t, annID, rel.FromCustomerID)
	assert.Equal(t, bobID, rel.ToCustomerID)
	assert.Equal(t, "SPOUSE", rel.Role)

	// связь видна с обеих сторон
	for _, id := range []string{annID, bobID} {
		w = f.get(f.handler.ListRelationships, id)
		require.Equal(t, http.StatusOK, w.Code)
		var list []models.Relationship
		require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
		assert.Len(t, list, 1, id)
	}

	tests := []struct {
		name     string
		to       string
		wantCode int
		wantErr  string
	}{
		{name: "self link", to: annID, wantCode: http.StatusBadRequest, wantErr: "Customer cannot be related to itself"},
		{name: "deleted target", to: gonID, wantCode: http.StatusNotFound, wantErr: "Related customer not found"},
		{
			name:     "unknown target",
			to:       "6f1c2a7e-3b1d-4f0a-9a52-0c1e7d9b4aff",
			wantCode: http.StatusNotFound,
			wantErr:  "Related customer not found",
		},
		{name: "not a uuid", to: "bob", wantCode: http.StatusBadRequest, wantErr: "to_customer_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.post(t, f.handler.AddRelationship, annID, "relationships",
				api.RelationshipRequest{ToCustomerID: tt.to, Role: "PARTNER"})
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, decodeError(t, w), tt.wantErr)
		})
	}
	assert.Len(t, f.profiles.relationships, 1)
}

func TestProfileHandler_Consents(t *testing.T) {
	f := newProfileFixture()
	granted, revoked := true, false

	w := f.post(t, f.handler.RecordConsent, annID, "consents",
		api.ConsentRequest{Topic: "marketing", Version: "v1", IsGranted: &granted})
	require.Equal(t, http.StatusCreated, w.Code)

	var first models.Consent
	require.NoError(t, json.NewDecoder(w.Body).Decode(&first))
	assert.Equal(t, "MARKETING", first.Topic)
	assert.True(t, first.IsGranted)
	assert.False(t, first.Timestamp.IsZero())

	w = f.post(t, f.handler.RecordConsent, annID, "consents",
		api.ConsentRequest{Topic: "MARKETING", Version: "v2", IsGranted: &revoked})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.post(t, f.handler.RecordConsent, bobID, "consents",
		api.ConsentRequest{Topic: "PDPA", Version: "v1", IsGranted: &granted})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.post(t, f.handler.RecordConsent, annID, "consents",
		api.ConsentRequest{Topic: "PDPA", Version: "v1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w), "is_granted")

	// история дописывается, старые решения не теряются
	w = f.get(f.handler.CustomerConsents, annID)
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.Consent
	require.NoError(t, json.NewDecoder(w.Body).Decode(&history))
	assert.Len(t, history, 2)

	w = httptest.NewRecorder()
	f.handler.ListConsents(w, httptest.NewRequest(http.MethodGet, "/api/v1/consents?topic=pdpa", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var byTopic []models.Consent
	require.NoError(t, json.NewDecoder(w.Body).Decode(&byTopic))
	require.Len(t, byTopic, 1)
	assert.Equal(t, bobID, byTopic[0].CustomerID)

	w = f.get(f.handler.GetConsent, first.ID)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Consent
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "v1", got.Version)

	w = f.get(f.handler.GetConsent, "6f1c2a7e-3b1d-4f0a-9a52-0c1e7d9b4aff")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Consent not found", decodeError(t, w))

	var actions []string
	for _, e := range f.audit.entries {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{models.AuditConsent, models.AuditConsent, models.AuditConsent}, actions)
}

func TestProfileHandler_StorageError(t *testing.T) {
	f := newProfileFixture()
	f.profiles.err = errStorageDown

	w := f.get(f.handler.ListAddresses, annID)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to fetch addresses", decodeError(t, w))

	w = f.get(f.handler.GetConsent, annID)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	granted := true
	w = f.post(t, f.handler.RecordConsent, annID, "consents",
		api.ConsentRequest{Topic: "PDPA", Version: "v1", IsGranted: &granted})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, f.audit.entries)
}
