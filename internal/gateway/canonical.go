package gateway

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Canonicalize renders a prompt as the exact text sent to the model. Strings
// pass through untouched. Anything else is encoded as JSON with object keys
// sorted, so structurally equal prompts render identically.
func Canonicalize(prompt any) (string, error) {
	switch p := prompt.(type) {
	case string:
		return p, nil
	case []byte:
		return string(p), nil
	}

	raw, err := json.Marshal(prompt)
	if err != nil {
		return "", fmt.Errorf("encode prompt: %w", err)
	}

	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("decode prompt: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return "", fmt.Errorf("encode canonical prompt: %w", err)
	}

	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Key is the prompt cache key for canonical prompt text.
func Key(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
