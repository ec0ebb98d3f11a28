package sim

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Named describes an object that has a name.
type Named interface {
	Name() string
}

// A Name is a hierarchical name that includes a series of tokens separated
// by dots, such as "Core[0].L1".
type Name struct {
	Tokens []NameToken
}

// NameToken is a token of a name.
type NameToken struct {
	ElemName string
	Index    []int
}

// ParseName parses a name string.
func ParseName(sname string) (Name, error) {
	tokens := strings.Split(sname, ".")
	name := Name{Tokens: make([]NameToken, len(tokens))}

	for i, token := range tokens {
		t, err := parseNameToken(token)
		if err != nil {
			return Name{}, err
		}

		name.Tokens[i] = t
	}

	return name, nil
}

func parseNameToken(token string) (NameToken, error) {
	if err := bracketsMustMatch(token); err != nil {
		return NameToken{}, err
	}

	ts := strings.Split(token, "[")

	indices := make([]int, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		if !strings.HasSuffix(ts[i], "]") {
			return NameToken{}, errors.New("index must be closed by ]")
		}

		index, err := strconv.Atoi(strings.TrimSuffix(ts[i], "]"))
		if err != nil {
			return NameToken{}, errors.New("index must be an integer")
		}

		indices[i-1] = index
	}

	return NameToken{ElemName: ts[0], Index: indices}, nil
}

func bracketsMustMatch(token string) error {
	open := 0

	for _, c := range token {
		switch c {
		case '[':
			open++
		case ']':
			open--
			if open < 0 {
				return errors.New("brackets must match")
			}
		}
	}

	if open != 0 {
		return errors.New("brackets must match")
	}

	return nil
}

// ValidateName checks that a name follows the naming convention.
//  1. Elements are separated by dots, as in "Core[0].L1".
//  2. Elements must not be empty.
//  3. Elements start with a capital letter and do not contain _, -, or quotes.
//  4. Elements in a series use the square-bracket notation.
func ValidateName(name string) error {
	n, err := ParseName(name)
	if err == nil {
		for _, token := range n.Tokens {
			err = validateToken(token)
			if err != nil {
				break
			}
		}
	}

	if err != nil {
		return fmt.Errorf("name %q is not valid: %w", name, err)
	}

	return nil
}

// NameMustBeValid panics if the name does not pass ValidateName.
func NameMustBeValid(name string) {
	if err := ValidateName(name); err != nil {
		panic(err)
	}
}

func validateToken(token NameToken) error {
	if token.ElemName == "" {
		return errors.New("element must not be empty")
	}

	if i := strings.IndexAny(token.ElemName, "_\"'-"); i >= 0 {
		return fmt.Errorf("element must not contain %c", token.ElemName[i])
	}

	if token.ElemName[0] < 'A' || token.ElemName[0] > 'Z' {
		return errors.New("element must start with a capital letter")
	}

	return nil
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex builds a name for an element in a series.
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}
