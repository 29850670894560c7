package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Meghavibansod/HealthLedger/pkg/monitoring"
	"github.com/Meghavibansod/HealthLedger/pkg/types"
)

type addDoctorRequest struct {
	Doctor string `json:"doctor"`
}

type createRecordRequest struct {
	// RecordID takes a raw 0x-prefixed 32-byte identifier; Name takes a
	// human-readable record name to derive one from. Exactly one is used,
	// RecordID winning when both are present.
	RecordID string `json:"record_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Patient  string `json:"patient"`
	CID      string `json:"cid"`
	Meta     string `json:"meta"`
}

type updateRecordRequest struct {
	CID  string `json:"cid"`
	Meta string `json:"meta"`
}

type grantAccessRequest struct {
	Grantee string `json:"grantee"`
}

// addDoctorHandler handles doctor registration
func (s *Server) addDoctorHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", nil)
		return
	}

	var req addDoctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	doctor, err := types.ParseIdentity(req.Doctor)
	if err != nil {
		s.writeLedgerError(w, "add_doctor", err)
		return
	}

	if err := s.ledger.AddDoctor(caller, doctor); err != nil {
		s.writeLedgerError(w, "add_doctor", err)
		return
	}

	monitoring.RecordLedgerOperation("add_doctor", "success")
	s.writeJSONResponse(w, http.StatusOK, map[string]string{
		"doctor": doctor.String(),
	})
}

// createRecordHandler handles record creation
func (s *Server) createRecordHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", nil)
		return
	}

	var req createRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	name := req.RecordID
	if name == "" {
		name = req.Name
	}
	recordID, err := types.DeriveRecordID(name)
	if err != nil {
		s.writeLedgerError(w, "create_record", err)
		return
	}

	patient, err := types.ParseIdentity(req.Patient)
	if err != nil {
		s.writeLedgerError(w, "create_record", err)
		return
	}

	rec, err := s.ledger.CreateRecord(caller, recordID, patient, req.CID, req.Meta)
	if err != nil {
		s.writeLedgerError(w, "create_record", err)
		return
	}

	monitoring.RecordLedgerOperation("create_record", "success")
	s.writeJSONResponse(w, http.StatusCreated, rec)
}

// getRecordHandler handles record retrieval
func (s *Server) getRecordHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", nil)
		return
	}

	recordID, err := types.DeriveRecordID(mux.Vars(r)["id"])
	if err != nil {
		s.writeLedgerError(w, "get_record", err)
		return
	}

	rec, err := s.ledger.GetRecord(caller, recordID)
	if err != nil {
		s.writeLedgerError(w, "get_record", err)
		return
	}

	monitoring.RecordLedgerOperation("get_record", "success")
	s.writeJSONResponse(w, http.StatusOK, rec)
}

// updateRecordHandler handles record updates
func (s *Server) updateRecordHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", nil)
		return
	}

	recordID, err := types.DeriveRecordID(mux.Vars(r)["id"])
	if err != nil {
		s.writeLedgerError(w, "update_record", err)
		return
	}

	var req updateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rec, err := s.ledger.UpdateRecord(caller, recordID, req.CID, req.Meta)
	if err != nil {
		s.writeLedgerError(w, "update_record", err)
		return
	}

	monitoring.RecordLedgerOperation("update_record", "success")
	s.writeJSONResponse(w, http.StatusOK, rec)
}

// grantAccessHandler handles access grants
func (s *Server) grantAccessHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", nil)
		return
	}

	recordID, err := types.DeriveRecordID(mux.Vars(r)["id"])
	if err != nil {
		s.writeLedgerError(w, "grant_access", err)
		return
	}

	var req grantAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	grantee, err := types.ParseIdentity(req.Grantee)
	if err != nil {
		s.writeLedgerError(w, "grant_access", err)
		return
	}

	if err := s.ledger.GrantAccess(caller, recordID, grantee); err != nil {
		s.writeLedgerError(w, "grant_access", err)
		return
	}

	monitoring.RecordLedgerOperation("grant_access", "success")
	s.writeJSONResponse(w, http.StatusOK, map[string]string{
		"record_id": recordID.String(),
		"grantee":   grantee.String(),
	})
}

// auditHistoryHandler returns committed audit events (administrator only)
func (s *Server) auditHistoryHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", nil)
		return
	}

	var recordID types.RecordID
	if filter := r.URL.Query().Get("record_id"); filter != "" {
		parsed, err := types.DeriveRecordID(filter)
		if err != nil {
			s.writeLedgerError(w, "audit_history", err)
			return
		}
		recordID = parsed
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeErrorResponse(w, http.StatusBadRequest, "invalid limit", err)
			return
		}
		limit = parsed
	}

	events, err := s.ledger.AuditHistory(caller, recordID, limit)
	if err != nil {
		s.writeLedgerError(w, "audit_history", err)
		return
	}

	monitoring.RecordLedgerOperation("audit_history", "success")
	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// writeLedgerError maps the ledger error taxonomy onto HTTP status codes.
// The message passed through is the ledger's own, so the existence of a
// record is never revealed beyond what the ledger decided.
func (s *Server) writeLedgerError(w http.ResponseWriter, operation string, err error) {
	var status int
	errType := types.ErrorTypeOf(err)
	switch errType {
	case types.ErrorTypeValidation:
		status = http.StatusBadRequest
	case types.ErrorTypeUnauthorized:
		status = http.StatusForbidden
	case types.ErrorTypeNotFound:
		status = http.StatusNotFound
	case types.ErrorTypeConflict, types.ErrorTypeAlreadyInitialized:
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}

	monitoring.RecordLedgerOperation(operation, string(errType))
	if errType == types.ErrorTypeInternal {
		s.logger.WithError(err).WithField("operation", operation).Error("Ledger operation failed")
	}

	body := map[string]interface{}{
		"status": status,
	}
	var le *types.LedgerError
	if errors.As(err, &le) {
		body["error"] = map[string]string{
			"type":    string(le.Type),
			"code":    le.Code,
			"message": le.Message,
		}
	} else {
		body["error"] = map[string]string{
			"type":    string(types.ErrorTypeInternal),
			"code":    types.ErrCodeStorageFailure,
			"message": "internal error",
		}
	}
	s.writeJSONResponse(w, status, body)
}
