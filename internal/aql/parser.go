// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package aql parses the tag predicate grammar of spec.md §4.2 into a
// model.Predicate the event store can evaluate, plus the optional
// FEATURES(eventKeyRange)-gated to(<event-id>) clause.
package aql

import (
	"strings"

	"github.com/actyx-go/actyx/internal/model"
)

// Expression is a fully parsed AQL query: the tag predicate, and an
// optional event-id upper bound enabled only behind FEATURES(eventKeyRange).
type Expression struct {
	Predicate model.Predicate
	// To, if non-nil, restricts results to events strictly preceding this
	// key in canonical order (the to(<event-id>) clause).
	To       *model.EventKey
	Features map[string]bool
}

const featureEventKeyRange = "eventKeyRange"

// Parse parses src (the text after "FROM") into an Expression. It returns
// *BadRequestError on malformed input and *FeatureUnavailableError if a
// gated clause is used without the matching FEATURES(...) opt-in.
func Parse(src string) (*Expression, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	pred, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	expr := &Expression{Predicate: pred, Features: map[string]bool{}}

	for p.tok.kind == tokAmp {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokIdent {
			return nil, &BadRequestError{Pos: p.tok.pos, Message: "expected 'to' or 'FEATURES' after '&'"}
		}
		switch strings.ToLower(p.tok.text) {
		case "to":
			key, err := p.parseToClause()
			if err != nil {
				return nil, err
			}
			expr.To = &key
		case "features":
			feats, err := p.parseFeaturesClause()
			if err != nil {
				return nil, err
			}
			for _, f := range feats {
				expr.Features[f] = true
			}
		default:
			return nil, &BadRequestError{Pos: p.tok.pos, Message: "expected 'to' or 'FEATURES'"}
		}
	}

	if expr.To != nil && !expr.Features[featureEventKeyRange] {
		return nil, &FeatureUnavailableError{Feature: featureEventKeyRange}
	}
	if p.tok.kind != tokEOF {
		return nil, &BadRequestError{Pos: p.tok.pos, Message: "unexpected trailing input"}
	}
	return expr, nil
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

// parseOr := parseAnd ('|' parseAnd)*
func (p *parser) parseOr() (model.Predicate, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := []model.Predicate{left}
	for p.tok.kind == tokPipe {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, right)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return model.OrPredicate{Of: terms}, nil
}

// parseAnd := parseAtom ('&' parseAtom)*
// Note: '&' is ambiguous between "another tag" and "the to()/FEATURES()
// trailer" at the top level; parseAnd only consumes '&' when what follows
// is a tag atom (quoted literal, '(' or 'TAGS'), leaving the trailer for
// Parse to handle.
func (p *parser) parseAnd() (model.Predicate, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	terms := []model.Predicate{left}
	for p.tok.kind == tokAmp && p.startsAtom() {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		terms = append(terms, right)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return model.AndPredicate{Of: terms}, nil
}

// startsAtom peeks past the current '&' to decide whether it introduces
// another tag atom or the to()/FEATURES() trailer. It does not consume
// input: it re-lexes from a saved position.
func (p *parser) startsAtom() bool {
	save := *p.lex
	savedTok := p.tok
	defer func() { *p.lex = save; p.tok = savedTok }()

	t, err := p.lex.next()
	if err != nil || t.kind != tokIdent {
		return t.kind == tokString || t.kind == tokLParen
	}
	lower := strings.ToLower(t.text)
	return lower != "to" && lower != "features"
}

func (p *parser) parseAtom() (model.Predicate, error) {
	switch p.tok.kind {
	case tokString:
		tag := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return model.TagPredicate{Tag: tag}, nil
	case tokIdent:
		if strings.EqualFold(p.tok.text, "allEvents") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			return model.AllEventsPredicate{}, nil
		}
		if strings.EqualFold(p.tok.text, "TAGS") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			return p.parseOr()
		}
		return nil, &BadRequestError{Pos: p.tok.pos, Message: "expected tag literal, 'TAGS', 'allEvents' or '('"}
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, &BadRequestError{Pos: p.tok.pos, Message: "expected ')'"}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, &BadRequestError{Pos: p.tok.pos, Message: "expected tag predicate"}
	}
}

// parseToClause parses "to" "(" <event-id> ")" with the "to" identifier
// already current.
func (p *parser) parseToClause() (model.EventKey, error) {
	if err := p.advance(); err != nil {
		return model.EventKey{}, err
	}
	if p.tok.kind != tokLParen {
		return model.EventKey{}, &BadRequestError{Pos: p.tok.pos, Message: "expected '(' after 'to'"}
	}
	if err := p.advance(); err != nil {
		return model.EventKey{}, err
	}
	if p.tok.kind != tokIdent {
		return model.EventKey{}, &BadRequestError{Pos: p.tok.pos, Message: "expected event-id inside to(...)"}
	}
	key, err := model.ParseEventKey(p.tok.text)
	if err != nil {
		return model.EventKey{}, &BadRequestError{Pos: p.tok.pos, Message: err.Error()}
	}
	if err := p.advance(); err != nil {
		return model.EventKey{}, err
	}
	if p.tok.kind != tokRParen {
		return model.EventKey{}, &BadRequestError{Pos: p.tok.pos, Message: "expected ')' after event-id"}
	}
	if err := p.advance(); err != nil {
		return model.EventKey{}, err
	}
	return key, nil
}

// parseFeaturesClause parses "FEATURES" "(" ident ("," ident)* ")" with the
// "FEATURES" identifier already current.
func (p *parser) parseFeaturesClause() ([]string, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind != tokLParen {
		return nil, &BadRequestError{Pos: p.tok.pos, Message: "expected '(' after 'FEATURES'"}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	var feats []string
	for {
		if p.tok.kind != tokIdent {
			return nil, &BadRequestError{Pos: p.tok.pos, Message: "expected feature name"}
		}
		feats = append(feats, p.tok.text)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if p.tok.kind != tokRParen {
		return nil, &BadRequestError{Pos: p.tok.pos, Message: "expected ')' after feature list"}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return feats, nil
}
