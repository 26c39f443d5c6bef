package ison

import (
	"encoding/base32"
	"encoding/binary"
	mathrand "math/rand"

	"github.com/google/uuid"
)

// rngFor resolves a generator handle to its live PRNG state. The handle
// is opaque (§9 open question c): it is never decoded, only round-
// tripped — the sub-table that actually carries the PRNG state lives on
// the evaluator (§5) and is populated once, by rand.seed.
func (ev *Evaluator) rngFor(handle string) (*mathrand.Rand, bool) {
	rng, ok := ev.rngs[handle]
	return rng, ok
}

// newRandHandle mints an opaque generator handle: uuid.New()'s bytes
// followed by the big-endian seed, base32-encoded. The uuid guarantees
// two calls with the same seed still get distinct handles (and thus
// independent streams); the seed itself is carried along only so the
// handle's hex/base32 form looks load-bearing to a reader, matching §9's
// "an opaque string encoding the generator id and seed" — ISON code must
// never parse it back out.
func newRandHandle(seed int64) string {
	id := uuid.New()
	var buf [24]byte
	copy(buf[:16], id[:])
	binary.BigEndian.PutUint64(buf[16:], uint64(seed))
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf[:])
}

// registerRand installs the seeded random subsystem: explicit generator
// handles so multiple independent streams can coexist (§4.4), built on
// math/rand (no third-party PRNG appears in the retrieved dependency
// set) plus google/uuid for the handle's identifier half, which does
// appear directly in the teacher's go.mod.
func registerRand(r *FunctionRegistry) {
	r.Register("rand.seed", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		seed := int64(0)
		if len(args) > 0 {
			f, ok := numOf(args[0])
			if !ok {
				return Value{}, FuncError(name, "seed argument is not a number")
			}
			seed = int64(f)
		}
		handle := newRandHandle(seed)
		ev.rngs[handle] = mathrand.New(mathrand.NewSource(seed))
		return String(handle), nil
	})
	r.Register("rand.float", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		h, err := strArg(name, args, 0)
		if err != nil {
			return Value{}, err
		}
		rng, ok := ev.rngFor(h)
		if !ok {
			return Value{}, FuncError(name, "unknown generator handle")
		}
		return Float(rng.Float64()), nil
	})
	r.Register("rand.int", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		h, err := strArg(name, args, 0)
		if err != nil {
			return Value{}, err
		}
		rng, ok := ev.rngFor(h)
		if !ok {
			return Value{}, FuncError(name, "unknown generator handle")
		}
		if len(args) < 2 {
			return Int(rng.Int63()), nil
		}
		bound, ok := numOf(args[1])
		if !ok || bound <= 0 {
			return Value{}, FuncError(name, "bound argument must be a positive number")
		}
		return Int(rng.Int63n(int64(bound))), nil
	})
	r.Register("rand.choice", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		h, err := strArg(name, args, 0)
		if err != nil {
			return Value{}, err
		}
		list, err := requireArg(name, args, 1)
		if err != nil {
			return Value{}, err
		}
		if list.Kind() != KindList || len(list.List()) == 0 {
			return Value{}, FuncError(name, "second argument is not a non-empty list")
		}
		rng, ok := ev.rngFor(h)
		if !ok {
			return Value{}, FuncError(name, "unknown generator handle")
		}
		return list.List()[rng.Intn(len(list.List()))], nil
	})
}
