package qnode

import "errors"

var (
	ErrInvalidState        = errors.New("invalid state")
	ErrEmptyID             = errors.New("empty node id")
	ErrSelfConnection      = errors.New("node cannot connect to itself")
	ErrDuplicateNode       = errors.New("duplicate node id")
	ErrUnknownNode         = errors.New("unknown node")
	ErrNilNode             = errors.New("nil node")
	ErrInvalidSize         = errors.New("cluster size must be at least 1")
	ErrInvalidRadius       = errors.New("radius must be a finite non-negative number")
	ErrInvalidProbability  = errors.New("probability must be within [0, 1]")
	ErrTimestampRegression = errors.New("timestamp precedes last recorded change")
)
