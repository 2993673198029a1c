package engine

import (
	"errors"
	"fmt"
	"strings"

	"poolchat/pkg/types"
)

// Token ids. Ids below 256 are raw bytes.
const (
	TokenBeginOfText = 256 + iota
	TokenStartHeader
	TokenEndHeader
	TokenEOT
	VocabSize
)

var specialNames = map[int]string{
	TokenBeginOfText: "<|begin_of_text|>",
	TokenStartHeader: "<|start_header_id|>",
	TokenEndHeader:   "<|end_header_id|>",
	TokenEOT:         "<|eot_id|>",
}

var errMalformedDialog = errors.New("malformed dialog tokens")

// Tokenizer encodes conversations with the llama3 chat template over a byte
// vocabulary: each message is <|start_header_id|>role<|end_header_id|>,
// a blank line, the trimmed content and <|eot_id|>.
type Tokenizer struct{}

// IsEOT reports whether t ends a turn.
func (Tokenizer) IsEOT(t int) bool { return t == TokenEOT }

// EncodeDialogPrompt encodes msgs and opens an assistant turn.
func (tk Tokenizer) EncodeDialogPrompt(msgs []types.Message) []int {
	out := []int{TokenBeginOfText}
	for _, m := range msgs {
		out = append(out, tk.EncodeMessage(m)...)
	}
	return append(out, tk.encodeHeader(types.RoleAssistant)...)
}

// EncodeMessage encodes one complete turn.
func (tk Tokenizer) EncodeMessage(m types.Message) []int {
	out := tk.encodeHeader(m.Role)
	out = appendBytes(out, strings.TrimSpace(m.Content))
	return append(out, TokenEOT)
}

func (Tokenizer) encodeHeader(r types.Role) []int {
	out := []int{TokenStartHeader}
	out = appendBytes(out, strings.ToLower(string(r)))
	out = append(out, TokenEndHeader)
	return appendBytes(out, "\n\n")
}

func appendBytes(out []int, s string) []int {
	for i := 0; i < len(s); i++ {
		out = append(out, int(s[i]))
	}
	return out
}

// Decode renders tokens as text, special tokens by name.
func (Tokenizer) Decode(tokens []int) string {
	var b strings.Builder
	var raw []byte
	flush := func() {
		b.WriteString(strings.ToValidUTF8(string(raw), "�"))
		raw = raw[:0]
	}
	for _, t := range tokens {
		if t < 256 {
			raw = append(raw, byte(t))
			continue
		}
		flush()
		b.WriteString(specialNames[t])
	}
	flush()
	return b.String()
}

// DecodeDialog parses a token stream produced by EncodeDialogPrompt plus any
// generated tokens back into messages. The trailing turn is included even
// if it has no <|eot_id|> yet.
func (tk Tokenizer) DecodeDialog(tokens []int) ([]types.Message, error) {
	if len(tokens) == 0 || tokens[0] != TokenBeginOfText {
		return nil, fmt.Errorf("%w: missing begin of text", errMalformedDialog)
	}
	var out []types.Message
	for _, part := range splitTurns(tokens[1:]) {
		m, err := tk.decodeMessage(part)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// splitTurns splits at every start header, the header staying with the turn
// it opens.
func splitTurns(tokens []int) [][]int {
	var out [][]int
	begin := 0
	for i, t := range tokens {
		if t == TokenStartHeader && i > 0 {
			out = append(out, tokens[begin:i])
			begin = i
		}
	}
	if len(tokens) > 0 {
		out = append(out, tokens[begin:])
	}
	return out
}

func (tk Tokenizer) decodeMessage(tokens []int) (types.Message, error) {
	if len(tokens) == 0 || tokens[0] != TokenStartHeader {
		return types.Message{}, fmt.Errorf("%w: turn without header", errMalformedDialog)
	}
	end := -1
	for i, t := range tokens {
		if t == TokenEndHeader {
			end = i
			break
		}
	}
	if end < 0 || len(tokens) < end+3 || tokens[end+1] != '\n' || tokens[end+2] != '\n' {
		return types.Message{}, fmt.Errorf("%w: incomplete header", errMalformedDialog)
	}
	role, err := parseRole(tk.Decode(tokens[1:end]))
	if err != nil {
		return types.Message{}, err
	}
	body := tokens[end+3:]
	if n := len(body); n > 0 && tk.IsEOT(body[n-1]) {
		body = body[:n-1]
	}
	return types.Message{Role: role, Content: tk.Decode(body)}, nil
}

func parseRole(s string) (types.Role, error) {
	switch s {
	case "system":
		return types.RoleSystem, nil
	case "user":
		return types.RoleUser, nil
	case "assistant":
		return types.RoleAssistant, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", errMalformedDialog, s)
}
