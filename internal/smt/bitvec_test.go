package smt

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/math"
	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/stretchr/testify/assert"
)

func Test_Concat(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	a := NewBitVecValInt64(1, 8)
	b := NewBitVecValInt64(1, 8)
	c := NewBitVecValInt64(1, 8)
	z := Concats([]*BitVec{a, b, c}...)
	fmt.Println(a.Value(), b.Value(), z.HexString(), z.TermType())
}

func Test_getBitVecVal(t *testing.T) {
	yices2.Init()

	const v uint32 = 666

	bv := yices2.BvconstUint32(256, v)
	val := getBitVecValue(bv)
	assert.Equal(t, v, uint32(val))

	yices2.Exit()
}

func Test_GetBigBvValue(t *testing.T) {
	yices2.Init()

	var terms = make([]yices2.TermT, 0)
	for i := 0; i < 32; i++ {
		p := math.BigPow(256, int64(i))

		v := make([]int32, p.BitLen())
		for j := 0; j < p.BitLen(); j++ {
			v[j] = int32(p.Bit(j))
		}
		assert.Equal(t, p.BitLen(), len(v))
		terms = append(terms, yices2.BvconstFromArray(v))
	}
	assert.Equal(t, 32, len(terms))

	for i := 0; i < 32; i++ {
		p := math.BigPow(256, int64(i))
		v := GetBigBvValue(terms[i])
		assert.Equal(t, p.String(), v.String())
	}

	bv := NewBitVecValInt64(0xFF, 256)
	fmt.Println(bv.String())
	fmt.Println(bv.HexString())

	yices2.Exit()
}

// FeltBits is the bit-width symexec allocates for every felt252 SSA
// variable.
const FeltBits = 252

func Test_BitVecType(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	a := NewBitVecValInt64(1, FeltBits)
	b := newBitVecValFromBigInt(big.NewInt(0), FeltBits)

	sum := a.Add(b)
	assert.Equal(t, uint32(FeltBits), sum.Size())
	assert.Equal(t, "1", sum.String())

	diff := a.Sub(a)
	assert.Equal(t, "0", diff.String())

	eq := a.Eq(a)
	assert.True(t, eq.IsTrue())

	name := NewBitVec("v0", FeltBits)
	assert.Equal(t, "v0", name.GetName())
	assert.True(t, name.IsSymbolic())
}
