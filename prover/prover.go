// Package prover declares the external cryptographic module's contract
// spec.md §6 and §1 name: setup/prove/verify over a compiled
// bytecode.Program, with the VM fulfilling the circuit side of that
// contract via its dual-mode execution (spec §4.5). A real pairing-based
// SNARK backend is explicitly out of scope (spec.md §1 Non-goals); this
// package is the seam a real one would be wired in through, plus
// prover/fake's documented non-cryptographic stand-in used to exercise
// the contract in tests.
package prover

import (
	"encoding/json"

	"github.com/informatter/zinclang/bytecode"
)

// Parameters is whatever key material a Backend's Setup produces for a
// given program; opaque to callers, meaningful only to the Backend that
// produced it.
type Parameters any

// Proof is the opaque artifact Prove produces and Verify checks.
type Proof any

// VerifyingKey is the public half of Parameters a Backend's Verify needs;
// derived from Parameters by whichever Backend produced them.
type VerifyingKey any

// Backend is the setup/prove/verify contract spec.md §6 names.
type Backend interface {
	// Setup compiles p's constraint system into backend-specific key
	// material.
	Setup(p *bytecode.Program) (Parameters, error)

	// Prove runs p against input (witness JSON, spec §6 shape rules),
	// returning the program's JSON-encoded output alongside a proof that
	// the run was performed correctly relative to params.
	Prove(p *bytecode.Program, params Parameters, input json.RawMessage) (output json.RawMessage, proof Proof, err error)

	// Verify checks proof attests to output under vk, without needing the
	// program or the private input that produced it.
	Verify(vk VerifyingKey, proof Proof, output json.RawMessage) (bool, error)
}
