// Package fake is a documented, non-cryptographic stand-in for
// prover.Backend (spec.md §1 Non-goals: "a real pairing-based zk-SNARK
// backend ... is explicitly out of scope"). It runs the real vm.Machine
// against a real constraint.R1CS so the constraint-emission side of a
// program is genuinely exercised, but its "proof" carries none of a real
// SNARK's succinctness or zero-knowledge properties — it is a content
// hash, good only for round-trip-testing the Setup/Prove/Verify contract
// spec.md §6 names. Never wire this into anything that needs an actual
// soundness guarantee.
package fake

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/informatter/zinclang/bytecode"
	"github.com/informatter/zinclang/constraint"
	"github.com/informatter/zinclang/field"
	"github.com/informatter/zinclang/prover"
	"github.com/informatter/zinclang/vm"
	"github.com/informatter/zinclang/witness"
)

// Parameters is Setup's output: a digest binding a proof to the exact
// program it was produced for, plus a nonce that stands in for a real
// backend's toxic waste / structured reference string.
type Parameters struct {
	ProgramDigest [32]byte
	Nonce         [32]byte
}

// VerifyingKey is the public half of Parameters a verifier needs. This
// backend has no actual proving/verifying asymmetry, so it is the same
// two fields; a real backend's VerifyingKey would be far smaller than
// its Parameters.
type VerifyingKey struct {
	ProgramDigest [32]byte
	Nonce         [32]byte
}

// VerifyingKey derives the public VerifyingKey from Parameters.
func (p Parameters) VerifyingKey() VerifyingKey {
	return VerifyingKey{ProgramDigest: p.ProgramDigest, Nonce: p.Nonce}
}

// Proof is this backend's fake attestation: a hash tag over
// (ProgramDigest, Nonce, OutputDigest). Flipping any byte of it, or of
// the output it accompanies, changes at least one side of Verify's
// comparison.
type Proof struct {
	OutputDigest [32]byte
	Tag          [32]byte
}

// Backend implements prover.Backend.
type Backend struct{}

var _ prover.Backend = Backend{}

func programDigest(p *bytecode.Program) ([32]byte, error) {
	data, err := bytecode.Encode(p)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// Setup computes p's program digest and draws a fresh nonce.
func (Backend) Setup(p *bytecode.Program) (prover.Parameters, error) {
	digest, err := programDigest(p)
	if err != nil {
		return nil, fmt.Errorf("fake: setup: %w", err)
	}
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("fake: setup: %w", err)
	}
	return Parameters{ProgramDigest: digest, Nonce: nonce}, nil
}

// Prove decodes input, replays p through a real vm.Machine against a
// real constraint.R1CS, encodes the resulting output, and tags it with
// params' program digest and nonce.
func (Backend) Prove(p *bytecode.Program, params prover.Parameters, input json.RawMessage) (json.RawMessage, prover.Proof, error) {
	fp, ok := params.(Parameters)
	if !ok {
		return nil, nil, fmt.Errorf("fake: prove: params were not produced by this backend")
	}
	digest, err := programDigest(p)
	if err != nil {
		return nil, nil, fmt.Errorf("fake: prove: %w", err)
	}
	if digest != fp.ProgramDigest {
		return nil, nil, fmt.Errorf("fake: prove: params were set up for a different program")
	}

	inputCells, err := witness.Decode(p.Types, p.Input, input)
	if err != nil {
		return nil, nil, fmt.Errorf("fake: prove: decoding input: %w", err)
	}

	sys := constraint.NewR1CS()
	machine := vm.New(field.Modulus)
	outputCells, err := machine.Run(p, inputCells, sys)
	if err != nil {
		return nil, nil, fmt.Errorf("fake: prove: %w", err)
	}

	output, err := witness.Encode(p.Types, p.Output, outputCells)
	if err != nil {
		return nil, nil, fmt.Errorf("fake: prove: encoding output: %w", err)
	}

	outputDigest := sha256.Sum256(output)
	tag := tagOf(fp.ProgramDigest, fp.Nonce, outputDigest)
	return output, Proof{OutputDigest: outputDigest, Tag: tag}, nil
}

// Verify recomputes output's digest and the expected tag under vk,
// accepting only when both match the proof exactly.
func (Backend) Verify(vk prover.VerifyingKey, p prover.Proof, output json.RawMessage) (bool, error) {
	fvk, ok := vk.(VerifyingKey)
	if !ok {
		return false, fmt.Errorf("fake: verify: verifying key was not produced by this backend")
	}
	fp, ok := p.(Proof)
	if !ok {
		return false, fmt.Errorf("fake: verify: proof was not produced by this backend")
	}

	if sha256.Sum256(output) != fp.OutputDigest {
		return false, nil
	}
	return tagOf(fvk.ProgramDigest, fvk.Nonce, fp.OutputDigest) == fp.Tag, nil
}

func tagOf(programDigest, nonce, outputDigest [32]byte) [32]byte {
	h := sha256.New()
	h.Write(programDigest[:])
	h.Write(nonce[:])
	h.Write(outputDigest[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
