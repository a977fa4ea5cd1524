// Copyright (c) RBQL contributors.

package expr

type tokenType int

const (
	eofToken tokenType = iota
	identToken
	intToken
	floatToken
	stringToken
	andToken
	orToken
	notToken
	nullToken
	trueToken
	falseToken
	plusToken
	minusToken
	starToken
	slashToken
	percentToken
	equalToken
	notEqualToken
	lessThanToken
	lessThanOrEqualToken
	greaterThanToken
	greaterThanOrEqualToken
	leftParenToken
	rightParenToken
	leftBracketToken
	rightBracketToken
	commaToken
	dotToken
)

type token struct {
	Type  tokenType
	Value string
}

var keywords = map[string]tokenType{
	"and":   andToken,
	"or":    orToken,
	"not":   notToken,
	"None":  nullToken,
	"null":  nullToken,
	"True":  trueToken,
	"true":  trueToken,
	"False": falseToken,
	"false": falseToken,
}
