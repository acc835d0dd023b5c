// Command binocular-validate is a conformance-fixture harness over the
// pure oracle core, modeled on
// 2tbmz9y2xt-lang-rubin-protocol/clients/go/cmd/rubin-consensus-cli's
// single stdin-JSON-request / stdout-JSON-response loop: it reads one
// fixture describing a candidate UpdateOracle transition plus its
// surrounding environment contract (spec.md §6) and reports whether the
// core accepts it, alongside the state it actually recomputed.
//
// This is not "CLI argument parsing" in the sense spec.md §1's Non-goals
// exclude (a Bitcoin-node CLI that acquires headers from peers); it never
// touches a network or a host chain. It exists only so the deterministic
// core in package oracle can be exercised end-to-end from a file instead
// of from another Go package.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/lantr-io/binocular/consensus"
	"github.com/lantr-io/binocular/header"
	"github.com/lantr-io/binocular/internal/oracleerr"
	"github.com/lantr-io/binocular/internal/oraclehash"
	"github.com/lantr-io/binocular/oracle"
	"github.com/lantr-io/binocular/wire"
)

// fixture is the conformance-fixture request shape. Every hex field is raw
// wire bytes: PrevStateHex and NextStateClaimedHex are CBOR-encoded
// ChainState datums (spec.md §6); HeadersHex are 80-byte headers.
type fixture struct {
	PrevStateHex         string   `json:"prev_state_cbor_hex"`
	HeadersHex           []string `json:"headers_hex"`
	CurrentTime          int64    `json:"current_time"`
	ValidityIntervalTime *int64   `json:"validity_interval_time"`
	NextStateClaimedHex  string   `json:"next_state_claimed_cbor_hex"`
	InputDatumHashHex    string   `json:"input_datum_hash_hex,omitempty"`

	// OwnInputUnique and ContinuingOutputUnique model the two halves of
	// §6's "ownInput ... must be unique at the oracle address" /
	// "nextStateClaimed ... Must equal the computed next" output-shape
	// contract that lives outside the pure core. Both default to true
	// when the fixture omits them.
	OwnInputUnique        *bool `json:"own_input_unique"`
	ContinuingOutputUnique *bool `json:"continuing_output_unique"`
}

// response is the conformance-fixture result shape.
type response struct {
	Ok                  bool   `json:"ok"`
	ErrCode             string `json:"err_code,omitempty"`
	Err                 string `json:"err,omitempty"`
	RecomputedStateHex  string `json:"recomputed_state_cbor_hex,omitempty"`
	BlockHeight         int64  `json:"block_height,omitempty"`
	InputDatumHashMatch *bool  `json:"input_datum_hash_match,omitempty"`
}

func writeResp(w io.Writer, resp response) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resp)
}

func fail(code oracleerr.ErrorCode, msg string) response {
	return response{Ok: false, ErrCode: code.String(), Err: msg}
}

func main() {
	var f fixture
	if err := json.NewDecoder(os.Stdin).Decode(&f); err != nil {
		writeResp(os.Stdout, response{Ok: false, Err: fmt.Sprintf("bad fixture: %v", err)})
		return
	}
	writeResp(os.Stdout, validate(f, consensus.MainNetParams()))
}

// validate runs a fixture's full environment-plus-core check against
// params. params is a parameter rather than always consensus.MainNetParams()
// so tests can exercise the harness against an easier test-only target
// without mining real proof-of-work.
func validate(f fixture, params *consensus.Params) response {
	if f.ValidityIntervalTime == nil {
		return fail(oracleerr.ErrNonFiniteValidity, "validity_interval_time is not finite")
	}
	skew := f.CurrentTime - *f.ValidityIntervalTime
	if skew < 0 {
		skew = -skew
	}
	if skew > params.TimeToleranceSeconds {
		return fail(oracleerr.ErrTimeOutOfTolerance, fmt.Sprintf("|current_time - validity_interval_time| = %d exceeds TimeToleranceSeconds", skew))
	}

	if f.OwnInputUnique != nil && !*f.OwnInputUnique {
		return fail(oracleerr.ErrOutputShape, "own input is not unique at the oracle address")
	}
	if f.ContinuingOutputUnique != nil && !*f.ContinuingOutputUnique {
		return fail(oracleerr.ErrOutputShape, "continuing output is not unique")
	}

	prevStateBytes, err := hex.DecodeString(f.PrevStateHex)
	if err != nil {
		return response{Ok: false, Err: "bad prev_state_cbor_hex"}
	}
	prevState, err := wire.UnmarshalChainState(prevStateBytes)
	if err != nil {
		return response{Ok: false, Err: fmt.Sprintf("decode prev state: %v", err)}
	}

	headers := make([]header.BlockHeader, 0, len(f.HeadersHex))
	for _, hh := range f.HeadersHex {
		raw, err := hex.DecodeString(hh)
		if err != nil {
			return response{Ok: false, Err: "bad headers_hex entry"}
		}
		hdr, err := header.Parse(raw)
		if err != nil {
			return response{Ok: false, Err: fmt.Sprintf("parse header: %v", err)}
		}
		headers = append(headers, hdr)
	}

	var inputDatumHashMatch *bool
	if f.InputDatumHashHex != "" {
		claimedBytes, err := hex.DecodeString(f.InputDatumHashHex)
		if err != nil || len(claimedBytes) != 32 {
			return response{Ok: false, Err: "bad input_datum_hash_hex"}
		}
		var claimed [32]byte
		copy(claimed[:], claimedBytes)
		// Hash the prev-state datum bytes exactly as supplied.
		ok, err := oraclehash.Verify(cbor.RawMessage(prevStateBytes), claimed)
		if err != nil {
			return response{Ok: false, Err: fmt.Sprintf("hash prev state: %v", err)}
		}
		inputDatumHashMatch = &ok
	}

	next, err := oracle.ComputeUpdateOracleState(prevState, headers, f.CurrentTime, params)
	if err != nil {
		if rerr, ok := err.(oracleerr.RuleError); ok {
			resp := fail(rerr.ErrorCode, rerr.Description)
			resp.InputDatumHashMatch = inputDatumHashMatch
			return resp
		}
		resp := response{Ok: false, Err: err.Error()}
		resp.InputDatumHashMatch = inputDatumHashMatch
		return resp
	}

	nextEncoded, err := wire.MarshalChainState(next)
	if err != nil {
		return response{Ok: false, Err: fmt.Sprintf("encode recomputed state: %v", err)}
	}

	claimedBytes, err := hex.DecodeString(f.NextStateClaimedHex)
	if err != nil {
		return response{Ok: false, Err: "bad next_state_claimed_cbor_hex"}
	}
	claimedState, err := wire.UnmarshalChainState(claimedBytes)
	if err != nil {
		return response{Ok: false, Err: fmt.Sprintf("decode claimed next state: %v", err)}
	}
	claimedEncoded, err := wire.MarshalChainState(claimedState)
	if err != nil {
		return response{Ok: false, Err: fmt.Sprintf("re-encode claimed next state: %v", err)}
	}
	if string(nextEncoded) != string(claimedEncoded) {
		resp := fail(oracleerr.ErrStateMismatch, "recomputed next state does not equal the claimed next state")
		resp.RecomputedStateHex = hex.EncodeToString(nextEncoded)
		resp.BlockHeight = next.BlockHeight
		resp.InputDatumHashMatch = inputDatumHashMatch
		return resp
	}

	return response{
		Ok:                  true,
		RecomputedStateHex:  hex.EncodeToString(nextEncoded),
		BlockHeight:         next.BlockHeight,
		InputDatumHashMatch: inputDatumHashMatch,
	}
}
