package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Meghavibansod/HealthLedger/internal/ledger"
	"github.com/Meghavibansod/HealthLedger/pkg/config"
	"github.com/Meghavibansod/HealthLedger/pkg/logger"
	"github.com/Meghavibansod/HealthLedger/pkg/state"
	"github.com/Meghavibansod/HealthLedger/pkg/types"
)

const testSecret = "test-secret"

var (
	adminID    = types.MustIdentity("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	doctorID   = types.MustIdentity("0xdddddddddddddddddddddddddddddddddddddddd")
	patientID  = types.MustIdentity("0x1111111111111111111111111111111111111111")
	strangerID = types.MustIdentity("0x9999999999999999999999999999999999999999")
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
		JWT: config.JWTConfig{
			SecretKey: testSecret,
			Issuer:    "healthledger",
			Audience:  "healthledger-callers",
		},
		Monitoring: config.MonitoringConfig{
			Enabled:     false,
			MetricsPath: "/metrics",
			HealthPath:  "/health",
		},
	}
}

func setupServer(t *testing.T) (*Server, *ledger.Ledger) {
	t.Helper()
	l := ledger.New(state.NewMemoryStore(), logger.New("error"))
	require.NoError(t, l.Initialize(adminID))
	require.NoError(t, l.AddDoctor(adminID, doctorID))
	return New(l, logger.New("error"), testConfig()), l
}

func tokenFor(t *testing.T, caller types.Identity) string {
	t.Helper()
	claims := CallerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.String(),
			Issuer:    "healthledger",
			Audience:  jwt.ClaimStrings{"healthledger-callers"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, s *Server, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	s, _ := setupServer(t)

	t.Run("missing token is rejected", func(t *testing.T) {
		rec := doRequest(t, s, "GET", "/api/v1/records/patient-001", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		rec := doRequest(t, s, "GET", "/api/v1/records/patient-001", "not-a-token", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token signed with another key is rejected", func(t *testing.T) {
		claims := CallerClaims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID.String(),
			Issuer:    "healthledger",
			Audience:  jwt.ClaimStrings{"healthledger-callers"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("wrong"))
		require.NoError(t, err)

		rec := doRequest(t, s, "GET", "/api/v1/records/patient-001", forged, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("health needs no token", func(t *testing.T) {
		rec := doRequest(t, s, "GET", "/api/v1/health", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestLedgerEndpoints(t *testing.T) {
	s, _ := setupServer(t)

	t.Run("doctor creates a record", func(t *testing.T) {
		rec := doRequest(t, s, "POST", "/api/v1/records", tokenFor(t, doctorID), map[string]string{
			"name":    "patient-001",
			"patient": patientID.String(),
			"cid":     "QmTestHash123",
			"meta":    "test-record",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var created types.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.Equal(t, patientID, created.Patient)
		assert.Equal(t, doctorID, created.CreatedBy)
	})

	t.Run("patient reads by name", func(t *testing.T) {
		rec := doRequest(t, s, "GET", "/api/v1/records/patient-001", tokenFor(t, patientID), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got types.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "QmTestHash123", got.CID)
	})

	t.Run("stranger read is forbidden", func(t *testing.T) {
		rec := doRequest(t, s, "GET", "/api/v1/records/patient-001", tokenFor(t, strangerID), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("duplicate create conflicts", func(t *testing.T) {
		rec := doRequest(t, s, "POST", "/api/v1/records", tokenFor(t, doctorID), map[string]string{
			"name":    "patient-001",
			"patient": patientID.String(),
			"cid":     "QmOther",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("patient grants stranger access", func(t *testing.T) {
		recordID, err := types.DeriveRecordID("patient-001")
		require.NoError(t, err)

		rec := doRequest(t, s, "POST", "/api/v1/records/"+recordID.String()+"/grants",
			tokenFor(t, patientID), map[string]string{"grantee": strangerID.String()})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = doRequest(t, s, "GET", "/api/v1/records/patient-001", tokenFor(t, strangerID), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("doctor updates the record", func(t *testing.T) {
		rec := doRequest(t, s, "PUT", "/api/v1/records/patient-001", tokenFor(t, doctorID), map[string]string{
			"cid":  "QmUpdatedHash456",
			"meta": "updated-health-record",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var updated types.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, "QmUpdatedHash456", updated.CID)
		assert.Equal(t, doctorID, updated.CreatedBy)
	})

	t.Run("missing record stays hidden from strangers", func(t *testing.T) {
		rec := doRequest(t, s, "GET", "/api/v1/records/no-such-record", tokenFor(t, strangerID), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = doRequest(t, s, "GET", "/api/v1/records/no-such-record", tokenFor(t, adminID), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-admin cannot register doctors", func(t *testing.T) {
		rec := doRequest(t, s, "POST", "/api/v1/doctors", tokenFor(t, doctorID), map[string]string{
			"doctor": strangerID.String(),
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("malformed identity is a bad request", func(t *testing.T) {
		rec := doRequest(t, s, "POST", "/api/v1/doctors", tokenFor(t, adminID), map[string]string{
			"doctor": "not-an-address",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("audit history is admin only over HTTP", func(t *testing.T) {
		rec := doRequest(t, s, "GET", "/api/v1/audit", tokenFor(t, doctorID), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = doRequest(t, s, "GET", "/api/v1/audit?limit=2", tokenFor(t, adminID), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var out struct {
			Events []types.AuditEvent `json:"events"`
			Count  int                `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, 2, out.Count)
		assert.Len(t, out.Events, 2)
	})
}
