package smt

import yices2 "github.com/ianamason/yices2_go_bindings/yices_api"

type StorableType interface {
	GetRaw() yices2.TermT
	Clone() StorableType
	AsBitVec() *BitVec
	AsBool() Bool
	Type() string
	Size() uint32
}

// Annotation tags a term with caller-defined metadata that survives
// cloning and set operations across expressions built from it.
type Annotation interface {
	Clone() Annotation
}
