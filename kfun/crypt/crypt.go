// Package crypt provides the stock cipher and hash algorithms behind the
// encrypt, decrypt and hash_string kfuns.
package crypt

import (
	"crypto/des"
	"crypto/md5"
	"crypto/sha1"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"

	"github.com/chazu/hearth/kfun"
)

// Functions returns the stock algorithms as kfun registrations.
func Functions() []kfun.ExtFunction {
	return []kfun.ExtFunction{
		{Name: "encrypt DES", Prototype: "sss", Func: desCrypt("encrypt DES", true)},
		{Name: "encrypt DES key", Prototype: "ss", Func: desKey("encrypt DES key")},
		{Name: "decrypt DES", Prototype: "sss", Func: desCrypt("decrypt DES", false)},
		{Name: "decrypt DES key", Prototype: "ss", Func: desKey("decrypt DES key")},
		{Name: "encrypt ChaCha20", Prototype: "ssss", Func: chachaCrypt("encrypt ChaCha20")},
		{Name: "decrypt ChaCha20", Prototype: "ssss", Func: chachaCrypt("decrypt ChaCha20")},
		{Name: "hash MD5", Prototype: "ss*", Func: digest("hash MD5", func(b []byte) []byte {
			sum := md5.Sum(b)
			return sum[:]
		})},
		{Name: "hash SHA1", Prototype: "ss*", Func: digest("hash SHA1", func(b []byte) []byte {
			sum := sha1.Sum(b)
			return sum[:]
		})},
		{Name: "hash blake2b", Prototype: "ss*", Func: digest("hash blake2b", func(b []byte) []byte {
			sum := blake2b.Sum256(b)
			return sum[:]
		})},
		{Name: "hash crypt", Prototype: "ss*s", Func: passwordHash},
	}
}

// Register adds the stock algorithms to b.
func Register(b *kfun.Builder) error {
	return b.RegisterFunctions(Functions())
}

// stringArgs returns the top nargs cells as strings. Argument numbers in
// errors count the algorithm name as argument 1.
func stringArgs(name string, f *kfun.Frame, nargs int) ([]string, error) {
	args := f.Args(nargs)
	strs := make([]string, len(args))
	for i, a := range args {
		if a.Type() != kfun.TypeString {
			return nil, kfun.BadArg(name, i+2)
		}
		strs[i] = a.AsString()
	}
	return strs, nil
}

// desKey prepares a DES key: 8 bytes with odd parity.
func desKey(name string) kfun.ExtFunc {
	return func(f *kfun.Frame, nargs int) (kfun.Value, error) {
		args, err := stringArgs(name, f, nargs)
		if err != nil {
			return kfun.Nil, err
		}
		if len(args) != 1 || len(args[0]) != des.BlockSize {
			return kfun.Nil, kfun.BadArg(name, 2)
		}
		key := []byte(args[0])
		for i, b := range key {
			b &= 0xfe
			if parity(b)%2 == 0 {
				b |= 1
			}
			key[i] = b
		}
		return kfun.NewString(string(key)), nil
	}
}

func parity(b byte) int {
	n := 0
	for ; b != 0; b &= b - 1 {
		n++
	}
	return n
}

// desCrypt runs DES in ECB mode over whole blocks.
func desCrypt(name string, encrypt bool) kfun.ExtFunc {
	return func(f *kfun.Frame, nargs int) (kfun.Value, error) {
		args, err := stringArgs(name, f, nargs)
		if err != nil {
			return kfun.Nil, err
		}
		if len(args) != 2 {
			return kfun.Nil, &kfun.RuntimeError{Kfun: name, Err: kfun.ErrTooFewArgs}
		}
		block, err := des.NewCipher([]byte(args[0]))
		if err != nil {
			return kfun.Nil, kfun.BadArg(name, 2)
		}
		data := []byte(args[1])
		if len(data)%des.BlockSize != 0 {
			return kfun.Nil, kfun.BadArg(name, 3)
		}
		out := make([]byte, len(data))
		for i := 0; i < len(data); i += des.BlockSize {
			if encrypt {
				block.Encrypt(out[i:], data[i:])
			} else {
				block.Decrypt(out[i:], data[i:])
			}
		}
		return kfun.NewString(string(out)), nil
	}
}

// chachaCrypt XORs data with the ChaCha20 key stream; encryption and
// decryption are the same operation.
func chachaCrypt(name string) kfun.ExtFunc {
	return func(f *kfun.Frame, nargs int) (kfun.Value, error) {
		args, err := stringArgs(name, f, nargs)
		if err != nil {
			return kfun.Nil, err
		}
		if len(args) != 3 {
			return kfun.Nil, &kfun.RuntimeError{Kfun: name, Err: kfun.ErrTooFewArgs}
		}
		c, err := chacha20.NewUnauthenticatedCipher([]byte(args[0]), []byte(args[1]))
		if err != nil {
			return kfun.Nil, kfun.BadArg(name, 2)
		}
		out := make([]byte, len(args[2]))
		c.XORKeyStream(out, []byte(args[2]))
		return kfun.NewString(string(out)), nil
	}
}

// digest hashes the concatenation of all string arguments.
func digest(name string, sum func([]byte) []byte) kfun.ExtFunc {
	return func(f *kfun.Frame, nargs int) (kfun.Value, error) {
		args, err := stringArgs(name, f, nargs)
		if err != nil {
			return kfun.Nil, err
		}
		return kfun.NewString(string(sum([]byte(strings.Join(args, ""))))), nil
	}
}

// passwordHash hashes a password, or with a second argument checks the
// password against an existing hash: the hash is returned on a match and
// the empty string otherwise.
func passwordHash(f *kfun.Frame, nargs int) (kfun.Value, error) {
	const name = "hash crypt"
	args, err := stringArgs(name, f, nargs)
	if err != nil {
		return kfun.Nil, err
	}
	switch len(args) {
	case 1:
		h, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
		if err != nil {
			return kfun.Nil, &kfun.RuntimeError{Kfun: name, Err: err}
		}
		return kfun.NewString(string(h)), nil
	case 2:
		if bcrypt.CompareHashAndPassword([]byte(args[1]), []byte(args[0])) != nil {
			return kfun.NewString(""), nil
		}
		return kfun.NewString(args[1]), nil
	case 0:
		return kfun.Nil, &kfun.RuntimeError{Kfun: name, Err: kfun.ErrTooFewArgs}
	}
	return kfun.Nil, &kfun.RuntimeError{Kfun: name, Err: kfun.ErrTooManyArgs}
}
