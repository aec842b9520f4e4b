package models

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/sha3"
)

// GenesisHash precedes the first entry.
var GenesisHash = make([]byte, HashSize)

// CanonicalArguments re-encodes arguments with sorted keys and no
// insignificant whitespace so the hash survives a round trip through JSONB.
func CanonicalArguments(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return json.RawMessage("{}"), nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}
	return out, nil
}

// ComputeHash returns keccak256(prev || fields of e) with length-prefixed
// fields. Seq, hashes aside, every persisted column is covered.
func ComputeHash(prev []byte, e Entry) ([]byte, error) {
	args, err := CanonicalArguments(e.Arguments)
	if err != nil {
		return nil, err
	}

	h := sha3.NewLegacyKeccak256()
	h.Write(prev)

	var num [8]byte
	binary.BigEndian.PutUint64(num[:], e.Seq)
	h.Write(num[:])

	for _, field := range [][]byte{
		e.EventID[:],
		[]byte(e.Source),
		[]byte(fmt.Sprint(e.EntityID)),
		[]byte(e.Operation),
		args,
		[]byte(e.ResultingStatus),
		[]byte(e.Actor),
		[]byte(e.Client),
		[]byte(e.RequestID),
		[]byte(e.OccurredAt.UTC().Format(time.RFC3339Nano)),
	} {
		binary.BigEndian.PutUint64(num[:], uint64(len(field)))
		h.Write(num[:])
		h.Write(field)
	}
	return h.Sum(nil), nil
}

// Seal assigns seq and chains e to prev. OccurredAt is normalized to the
// microsecond precision Postgres stores.
func Seal(e Entry, seq uint64, prev []byte) (Entry, error) {
	e.Seq = seq
	e.OccurredAt = e.OccurredAt.UTC().Truncate(time.Microsecond)
	args, err := CanonicalArguments(e.Arguments)
	if err != nil {
		return Entry{}, err
	}
	e.Arguments = args
	e.PrevHash = append([]byte(nil), prev...)
	e.Hash, err = ComputeHash(prev, e)
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// ChainError describes the first entry that breaks the chain.
type ChainError struct {
	Seq    uint64
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("transition %d: %s", e.Seq, e.Reason)
}

// VerifyChain checks that entries are contiguous, each links to its
// predecessor, and each hash matches its content. prev is the hash preceding
// entries[0] (GenesisHash when starting from seq 1).
func VerifyChain(entries []Entry, prev []byte) error {
	for i, e := range entries {
		if i > 0 && e.Seq != entries[i-1].Seq+1 {
			return &ChainError{Seq: e.Seq, Reason: fmt.Sprintf("gap after %d", entries[i-1].Seq)}
		}
		if i == 0 && bytes.Equal(prev, GenesisHash) && e.Seq != 1 {
			return &ChainError{Seq: e.Seq, Reason: "chain does not start at 1"}
		}
		if !bytes.Equal(e.PrevHash, prev) {
			return &ChainError{Seq: e.Seq, Reason: "previous hash mismatch"}
		}
		want, err := ComputeHash(prev, e)
		if err != nil {
			return &ChainError{Seq: e.Seq, Reason: err.Error()}
		}
		if !bytes.Equal(want, e.Hash) {
			return &ChainError{Seq: e.Seq, Reason: "content hash mismatch"}
		}
		prev = e.Hash
	}
	return nil
}
