// Package programhttp contains an HTTP handler that exposes a program, and a
// client for it.
package programhttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/cors"
	"github.com/stellar/escrowchannel/ledger"
	"github.com/stellar/escrowchannel/msg"
	"github.com/stellar/escrowchannel/program"
	"github.com/stellar/escrowchannel/state"
	"github.com/stellar/escrowchannel/store"
	"github.com/stellar/go/keypair"
	"go.uber.org/zap"
)

// errorCodes maps the errors the program returns to the codes in error
// responses, and the status of the response.
var errorCodes = []struct {
	err    error
	code   string
	status int
}{
	{program.ErrReplayed, "replayed", http.StatusConflict},
	{store.ErrRecordExists, "record_exists", http.StatusConflict},
	{store.ErrNotFound, "not_found", http.StatusNotFound},
	{program.ErrMalformedInstruction, "malformed_instruction", http.StatusBadRequest},
	{program.ErrUnknownInstruction, "unknown_instruction", http.StatusBadRequest},
	{program.ErrWrongProgram, "wrong_program", http.StatusUnprocessableEntity},
	{program.ErrInvalidSignature, "invalid_signature", http.StatusUnprocessableEntity},
	{program.ErrMissingSignature, "missing_signature", http.StatusUnprocessableEntity},
	{state.ErrInsufficientFunds, "insufficient_funds", http.StatusUnprocessableEntity},
	{state.ErrConservationViolated, "conservation_violated", http.StatusUnprocessableEntity},
	{state.ErrUnauthorizedSigner, "unauthorized_signer", http.StatusUnprocessableEntity},
	{state.ErrChannelClosed, "channel_closed", http.StatusUnprocessableEntity},
	{state.ErrRecipientMismatch, "recipient_mismatch", http.StatusUnprocessableEntity},
	{state.ErrInvalidParty, "invalid_party", http.StatusUnprocessableEntity},
	{ledger.ErrNotPayable, "not_payable", http.StatusUnprocessableEntity},
}

const (
	codeMalformedRequest = "malformed_request"
	codeInternal         = "internal"
	codeMethodNotAllowed = "method_not_allowed"
)

// New returns a handler serving the program:
//
//	POST /instructions         processes an envelope
//	GET  /channels/{address}   returns a channel
//	GET  /identities/{address} returns an identity
//	GET  /snapshot             returns every record
func New(p *program.Program, logger *zap.SugaredLogger) http.Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	h := handler{program: p, logger: logger.Named("http")}
	m := http.NewServeMux()
	m.HandleFunc("/instructions", h.handleInstructions)
	m.HandleFunc("/channels/", h.handleChannel)
	m.HandleFunc("/identities/", h.handleIdentity)
	m.HandleFunc("/snapshot", h.handleSnapshot)
	return cors.Default().Handler(m)
}

type handler struct {
	program *program.Program
	logger  *zap.SugaredLogger
}

func (h handler) handleInstructions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, msg.Error{Code: codeMethodNotAllowed, Message: r.Method})
		return
	}
	e, err := msg.ReadEnvelope(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, msg.Error{Code: codeMalformedRequest, Message: err.Error()})
		return
	}
	result, err := h.program.Process(r.Context(), e)
	if err != nil {
		h.writeProgramError(w, err)
		return
	}
	h.write(w, http.StatusOK, result)
}

func (h handler) handleChannel(w http.ResponseWriter, r *http.Request) {
	address, ok := h.address(w, r, "/channels/")
	if !ok {
		return
	}
	c, err := h.program.Channel(r.Context(), address)
	if err != nil {
		h.writeProgramError(w, err)
		return
	}
	h.write(w, http.StatusOK, c)
}

func (h handler) handleIdentity(w http.ResponseWriter, r *http.Request) {
	address, ok := h.address(w, r, "/identities/")
	if !ok {
		return
	}
	i, err := h.program.Identity(r.Context(), address)
	if err != nil {
		h.writeProgramError(w, err)
		return
	}
	h.write(w, http.StatusOK, i)
}

func (h handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, msg.Error{Code: codeMethodNotAllowed, Message: r.Method})
		return
	}
	s, err := h.program.Snapshot(r.Context())
	if err != nil {
		h.writeProgramError(w, err)
		return
	}
	h.write(w, http.StatusOK, s)
}

// address parses the address that follows the prefix in the request path,
// writing an error response if it is not a valid address.
func (h handler) address(w http.ResponseWriter, r *http.Request, prefix string) (*keypair.FromAddress, bool) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, msg.Error{Code: codeMethodNotAllowed, Message: r.Method})
		return nil, false
	}
	address, err := keypair.ParseAddress(strings.TrimPrefix(r.URL.Path, prefix))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, msg.Error{Code: codeMalformedRequest, Message: "invalid address"})
		return nil, false
	}
	return address, true
}

func (h handler) writeProgramError(w http.ResponseWriter, err error) {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			h.writeError(w, c.status, msg.Error{Code: c.code, Message: err.Error()})
			return
		}
	}
	h.logger.Errorw("internal error", "error", err)
	h.writeError(w, http.StatusInternalServerError, msg.Error{Code: codeInternal, Message: err.Error()})
}

func (h handler) writeError(w http.ResponseWriter, status int, e msg.Error) {
	h.write(w, status, e)
}

func (h handler) write(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		h.logger.Warnw("writing response", "error", err)
	}
}
