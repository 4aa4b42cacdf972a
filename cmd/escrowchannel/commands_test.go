package main

import (
	"bytes"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stellar/escrowchannel/ledger/memledger"
	"github.com/stellar/escrowchannel/msg"
	"github.com/stellar/escrowchannel/program"
	"github.com/stellar/escrowchannel/programhttp"
	"github.com/stellar/escrowchannel/store/memstore"
	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProgramID = "escrow-cli-test"

// run executes a fresh command tree with the args, the input on stdin, and
// returns what the command wrote to stdout.
func run(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := newRootCmd()
	out := bytes.Buffer{}
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func readEnvelope(t *testing.T, s string) program.Envelope {
	t.Helper()
	e, err := msg.ReadEnvelope(strings.NewReader(s))
	require.NoError(t, err)
	return e
}

func TestRootCmd_help(t *testing.T) {
	out, err := run(t, "", "--help")
	require.NoError(t, err)
	for _, name := range []string{"serve", "instruction", "sign", "submit", "channel", "identity", "keygen", "escrow", "snapshot"} {
		assert.Contains(t, out, name)
	}

	out, err = run(t, "", "instruction", "--help")
	require.NoError(t, err)
	for _, name := range []string{"register", "open", "reallocate", "close"} {
		assert.Contains(t, out, name)
	}
}

func TestKeygenCmd(t *testing.T) {
	out, err := run(t, "", "keygen")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	address := strings.TrimPrefix(lines[0], "address: ")
	seed := strings.TrimPrefix(lines[1], "seed: ")
	kp, err := keypair.ParseFull(seed)
	require.NoError(t, err)
	assert.Equal(t, kp.Address(), address)
}

func TestInstructionSignSubmit(t *testing.T) {
	l := memledger.New()
	p := program.NewProgram(program.Config{ProgramID: testProgramID, Ledger: l, Store: memstore.New()})
	server := httptest.NewServer(programhttp.New(p, nil))
	defer server.Close()

	channel := keypair.MustRandom()
	owner := keypair.MustRandom()
	a := keypair.MustRandom()
	b := keypair.MustRandom()
	require.NoError(t, l.Fund(a.FromAddress(), 1000000000))
	require.NoError(t, l.Fund(b.FromAddress(), 1000000000))

	unsigned, err := run(t, "",
		"--program-id", testProgramID,
		"instruction", "open",
		"--channel", channel.Address(),
		"--owner", owner.Address(),
		"--party-a", a.Address(),
		"--contribution-a", "10",
		"--party-b", b.Address(),
		"--contribution-b", "5",
	)
	require.NoError(t, err)
	e := readEnvelope(t, unsigned)
	assert.Equal(t, testProgramID, e.Instruction.ProgramID)
	assert.Equal(t, program.TypeOpenChannel, e.Instruction.Type)
	assert.Equal(t, uint64(100000000), e.Instruction.OpenChannel.ContributionA)
	assert.Empty(t, e.Signatures)

	// Parties sign in turn.
	signed, err := run(t, unsigned, "--program-id", testProgramID, "sign", "--signer", owner.Seed(), "--signer", a.Seed())
	require.NoError(t, err)
	assert.Len(t, readEnvelope(t, signed).Signatures, 2)
	signed, err = run(t, signed, "--program-id", testProgramID, "sign", "--signer", b.Seed(), "--signer", channel.Seed(), "--signer", a.Seed())
	require.NoError(t, err)
	assert.Len(t, readEnvelope(t, signed).Signatures, 4)

	out, err := run(t, signed, "--server", server.URL, "submit")
	require.NoError(t, err)
	result := program.Result{}
	require.NoError(t, msg.NewDecoder(strings.NewReader(out)).Decode(&result))
	assert.Equal(t, e.Instruction.ID, result.InstructionID)
	hash, err := e.Instruction.Hash(testProgramID)
	require.NoError(t, err)
	assert.Equal(t, hash, result.Hash)
	require.NotNil(t, result.Channel)
	assert.Equal(t, uint64(100000000), result.Channel.BalanceA)
	assert.Equal(t, uint64(50000000), result.Channel.BalanceB)

	_, err = run(t, signed, "--server", server.URL, "submit")
	require.ErrorIs(t, err, program.ErrReplayed)

	out, err = run(t, "", "--server", server.URL, "channel", channel.Address())
	require.NoError(t, err)
	assert.Contains(t, out, `"balance_a": 100000000`)
	assert.Contains(t, out, `"owner": "`+owner.Address()+`"`)

	dir := t.TempDir()
	_, err = run(t, "", "--server", server.URL, "snapshot", "export", filepath.Join(dir, "snapshot.json"))
	require.NoError(t, err)
	b2, err := os.ReadFile(filepath.Join(dir, "snapshot.json"))
	require.NoError(t, err)
	assert.Contains(t, string(b2), channel.Address())
}

func TestInstructionCmd_files(t *testing.T) {
	dir := t.TempDir()
	a := keypair.MustRandom()
	slot := keypair.MustRandom()
	unsignedFile := filepath.Join(dir, "unsigned.json")
	signedFile := filepath.Join(dir, "signed.json")

	out, err := run(t, "",
		"instruction", "register",
		"--identity", slot.Address(),
		"--party", a.Address(),
		"--name", "alice",
		"--out", unsignedFile,
	)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = run(t, "", "sign", "--in", unsignedFile, "--out", signedFile, "--signer", a.Seed(), "--signer", slot.Seed())
	require.NoError(t, err)

	f, err := os.Open(signedFile)
	require.NoError(t, err)
	defer f.Close()
	e, err := msg.ReadEnvelope(f)
	require.NoError(t, err)
	assert.Equal(t, "escrowchannel", e.Instruction.ProgramID)
	assert.Equal(t, "alice", e.Instruction.RegisterIdentity.DisplayName)
	assert.Len(t, e.Signatures, 2)
}

func TestInstructionCmd_errors(t *testing.T) {
	a := keypair.MustRandom()

	_, err := run(t, "", "instruction", "register", "--party", a.Address())
	assert.EqualError(t, err, "--identity required")

	_, err = run(t, "", "instruction", "register", "--identity", "nope", "--party", a.Address())
	assert.ErrorContains(t, err, "cannot parse --identity")

	unsigned, err := run(t, "", "instruction", "register", "--identity", a.Address(), "--party", a.Address())
	require.NoError(t, err)
	_, err = run(t, unsigned, "sign")
	assert.EqualError(t, err, "--signer required")

	_, err = run(t, "", "serve", "--ledger", "nope")
	assert.EqualError(t, err, `unknown ledger "nope"`)
}

func TestConfig_env(t *testing.T) {
	a := keypair.MustRandom()
	t.Setenv("ESCROW_PROGRAM_ID", "from-env")

	out, err := run(t, "", "instruction", "register", "--identity", a.Address(), "--party", a.Address())
	require.NoError(t, err)
	assert.Equal(t, "from-env", readEnvelope(t, out).Instruction.ProgramID)

	// Flags take precedence over the environment.
	out, err = run(t, "", "--program-id", "from-flag", "instruction", "register", "--identity", a.Address(), "--party", a.Address())
	require.NoError(t, err)
	assert.Equal(t, "from-flag", readEnvelope(t, out).Instruction.ProgramID)
}

func TestConfig_file(t *testing.T) {
	a := keypair.MustRandom()
	configFile := filepath.Join(t.TempDir(), "escrowchannel.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("program-id: from-config\nname: carol\n"), 0o600))

	out, err := run(t, "", "--config", configFile, "instruction", "register", "--identity", a.Address(), "--party", a.Address())
	require.NoError(t, err)
	e := readEnvelope(t, out)
	assert.Equal(t, "from-config", e.Instruction.ProgramID)
	assert.Equal(t, "carol", e.Instruction.RegisterIdentity.DisplayName)

	_, err = run(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "keygen")
	assert.ErrorContains(t, err, "reading config file")
}
