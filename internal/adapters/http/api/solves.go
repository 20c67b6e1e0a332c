package api

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/okian/ctfboard/internal/adapters/identity"
	"github.com/okian/ctfboard/internal/domain/types"
)

// maxBodyBytes bounds request bodies; proofs are a few hundred bytes.
const maxBodyBytes = 64 << 10

// token reads the caller's token. Both "Bearer <token>" and a bare token
// are accepted.
func token(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if t := identity.BearerToken(h); t != "" {
		return t
	}
	return h
}

// decode reads a JSON body into v, writing a validation error on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeValidation(w, []types.ErrorItem{{
			Code:     "validation",
			Message:  fmt.Errorf("%w: %v", ErrBadRequest, err).Error(),
			Location: "body",
		}})
		return false
	}
	return true
}

// fieldCheck accumulates field-level validation errors.
type fieldCheck []types.ErrorItem

func (c *fieldCheck) required(param, value string) {
	if strings.TrimSpace(value) == "" {
		*c = append(*c, types.ErrorItem{Code: "validation", Message: "Invalid value", Location: "body", Param: param})
	}
}

func (c *fieldCheck) hex(param, value string) {
	if _, err := hex.DecodeString(value); err != nil || value == "" {
		*c = append(*c, types.ErrorItem{Code: "validation", Message: "Invalid value", Location: "body", Param: param})
	}
}

func (c fieldCheck) write(w http.ResponseWriter) bool {
	if len(c) == 0 {
		return false
	}
	writeValidation(w, c)
	return true
}

// handleSubmit handles POST /teams/{teamId}/solves.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req types.SubmitRequest
	if !decode(w, r, &req) {
		return
	}
	var check fieldCheck
	check.required("challengeId", req.ChallengeID)
	check.required("proof", req.Proof)
	if check.write(w) {
		return
	}
	solved, err := s.deps.SubmitSignedProof(r.Context(), token(r), mux.Vars(r)["teamId"], req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, solved)
}

// handleStep1 handles POST /teams/{teamId}/solves/{challengeId}/steps/1.
func (s *Server) handleStep1(w http.ResponseWriter, r *http.Request) {
	var req types.Step1Request
	if !decode(w, r, &req) {
		return
	}
	var check fieldCheck
	check.hex("kPublic", req.KPublic)
	check.hex("kTwoPublic", req.KTwoPublic)
	check.hex("publicKey", req.PublicKey)
	if check.write(w) {
		return
	}
	vars := mux.Vars(r)
	resp, err := s.deps.BeginInteractive(r.Context(), token(r), vars["teamId"], vars["challengeId"], req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleStep2 handles POST /teams/{teamId}/solves/{challengeId}/steps/2.
func (s *Server) handleStep2(w http.ResponseWriter, r *http.Request) {
	var req types.Step2Request
	if !decode(w, r, &req) {
		return
	}
	var check fieldCheck
	check.required("sessionId", req.SessionID)
	check.hex("signature", req.Signature)
	check.required("message", req.Message)
	if check.write(w) {
		return
	}
	vars := mux.Vars(r)
	solved, err := s.deps.FinishInteractive(r.Context(), token(r), vars["teamId"], vars["challengeId"], req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, solved)
}
