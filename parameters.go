package toolpath

import (
	"fmt"
	"strings"
)

const (
	maxNumParam = 5602
)

// Parameters holds the numbered (#123) and named (#<name>) parameters assigned while parsing.
// Unassigned numbered parameters read as zero; named parameters must be assigned before use.
// Names are not case sensitive.
type Parameters struct {
	numParams  map[int]float64
	nameParams map[string]float64
}

func NewParameters() *Parameters {
	return &Parameters{
		numParams:  map[int]float64{},
		nameParams: map[string]float64{},
	}
}

func (ps *Parameters) Num(num int) (float64, error) {
	if num < 1 || num > maxNumParam {
		return 0, fmt.Errorf("number parameter out of range: #%d", num)
	}
	return ps.numParams[num], nil
}

func (ps *Parameters) SetNum(num int, val float64) error {
	if num < 1 || num > maxNumParam {
		return fmt.Errorf("number parameter out of range: #%d", num)
	}
	ps.numParams[num] = val
	return nil
}

func (ps *Parameters) Name(name string) (float64, error) {
	val, ok := ps.nameParams[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("undefined name parameter: %s", name)
	}
	return val, nil
}

func (ps *Parameters) SetName(name string, val float64) {
	ps.nameParams[strings.ToLower(name)] = val
}
