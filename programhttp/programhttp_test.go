package programhttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stellar/escrowchannel/ledger/memledger"
	"github.com/stellar/escrowchannel/msg"
	"github.com/stellar/escrowchannel/program"
	"github.com/stellar/escrowchannel/state"
	"github.com/stellar/escrowchannel/store"
	"github.com/stellar/escrowchannel/store/memstore"
	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const programID = "escrow-http-test"

func newServer(t *testing.T) (*Client, *memledger.Ledger) {
	t.Helper()
	l := memledger.New()
	p := program.NewProgram(program.Config{
		ProgramID: programID,
		Ledger:    l,
		Store:     memstore.New(),
	})
	s := httptest.NewServer(New(p, nil))
	t.Cleanup(s.Close)
	return &Client{BaseURL: s.URL, HTTPClient: s.Client()}, l
}

func sign(t *testing.T, op interface{}, signers ...*keypair.Full) program.Envelope {
	t.Helper()
	i, err := program.NewInstruction(programID, op)
	require.NoError(t, err)
	e, err := program.Envelope{Instruction: i}.Sign(programID, signers...)
	require.NoError(t, err)
	return e
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	client, l := newServer(t)
	owner := keypair.MustRandom()
	a := keypair.MustRandom()
	b := keypair.MustRandom()
	channelKey := keypair.MustRandom()
	channel := channelKey.FromAddress()
	require.NoError(t, l.Fund(a.FromAddress(), 100))
	require.NoError(t, l.Fund(b.FromAddress(), 50))

	open := sign(t, &program.OpenChannel{
		Channel:       channel,
		Owner:         owner.FromAddress(),
		PartyA:        a.FromAddress(),
		ContributionA: 100,
		PartyB:        b.FromAddress(),
		ContributionB: 50,
	}, channelKey, owner, a, b)
	r, err := client.Submit(ctx, open)
	require.NoError(t, err)
	assert.Equal(t, open.Instruction.ID, r.InstructionID)
	hash, err := open.Instruction.Hash(programID)
	require.NoError(t, err)
	assert.Equal(t, hash, r.Hash)
	require.NotNil(t, r.Channel)
	assert.Equal(t, uint64(100), r.Channel.BalanceA)

	_, err = client.Submit(ctx, open)
	require.ErrorIs(t, err, program.ErrReplayed)

	_, err = client.Submit(ctx, sign(t, &program.ReallocateBalance{
		Channel:     channel,
		Signer1:     a.FromAddress(),
		Signer2:     b.FromAddress(),
		NewBalanceA: 100,
		NewBalanceB: 40,
	}, a, b))
	require.ErrorIs(t, err, state.ErrConservationViolated)

	info, err := client.Channel(ctx, channel)
	require.NoError(t, err)
	assert.Equal(t, owner.Address(), info.Owner.Address())
	assert.Equal(t, uint64(100), info.BalanceA)
	assert.Equal(t, uint64(50), info.BalanceB)

	_, err = client.Channel(ctx, keypair.MustRandom().FromAddress())
	require.ErrorIs(t, err, store.ErrNotFound)

	slot := keypair.MustRandom()
	_, err = client.Submit(ctx, sign(t, &program.RegisterIdentity{Identity: slot.FromAddress(), Party: a.FromAddress(), DisplayName: "alice"}, slot, a))
	require.NoError(t, err)
	identity, err := client.Identity(ctx, slot.FromAddress())
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.DisplayName)

	s, err := client.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, s.Channels, 1)
	assert.Len(t, s.Identities, 1)
}

func TestHandler_statuses(t *testing.T) {
	l := memledger.New()
	p := program.NewProgram(program.Config{ProgramID: programID, Ledger: l, Store: memstore.New()})
	h := New(p, nil)
	a := keypair.MustRandom()

	testCases := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"malformed body", http.MethodPost, "/instructions", "{", http.StatusBadRequest, "malformed_request"},
		{"wrong method", http.MethodGet, "/instructions", "", http.StatusMethodNotAllowed, "method_not_allowed"},
		{"invalid address", http.MethodGet, "/channels/nope", "", http.StatusBadRequest, "malformed_request"},
		{"missing identity", http.MethodGet, "/identities/" + a.Address(), "", http.StatusNotFound, "not_found"},
		{"unsigned instruction", http.MethodPost, "/instructions", unsignedRegistration(t, a), http.StatusUnprocessableEntity, "missing_signature"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code": "`+tc.wantCode+`"`)
		})
	}
}

func unsignedRegistration(t *testing.T, party *keypair.Full) string {
	t.Helper()
	e := sign(t, &program.RegisterIdentity{
		Identity:    keypair.MustRandom().FromAddress(),
		Party:       party.FromAddress(),
		DisplayName: "party",
	})
	sb := strings.Builder{}
	require.NoError(t, msg.WriteEnvelope(&sb, e))
	return sb.String()
}
