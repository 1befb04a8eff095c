package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactorMasksSecrets(t *testing.T) {
	r := &redactor{enabled: true, salt: "pepper"}

	out := r.apply([]interface{}{
		"atoken", "abc",
		"password", "hunter2",
		"user_id", "2b1c",
		"chat_id", "c-1",
		"dangling",
	})

	assert.Equal(t, "atoken", out[0])
	assert.Equal(t, "[REDACTED]", out[1])
	assert.Equal(t, "[REDACTED]", out[3])
	assert.Contains(t, out[5], "hash:")
	assert.NotEqual(t, "2b1c", out[5])
	assert.Equal(t, "c-1", out[7])
	assert.Equal(t, "dangling", out[8])
}

func TestRedactorMasksJWTValues(t *testing.T) {
	r := &redactor{enabled: true}
	jwtLike := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.sig"

	out := r.apply([]interface{}{"header", jwtLike})
	assert.Equal(t, "[REDACTED]", out[1])
}

func TestRedactorDisabledPassesThrough(t *testing.T) {
	r := &redactor{enabled: false}
	in := []interface{}{"password", "plain"}
	assert.Equal(t, in, r.apply(in))
}

func TestHashIsStable(t *testing.T) {
	r := &redactor{enabled: true, salt: "s"}
	assert.Equal(t, r.hash("u1"), r.hash("u1"))
	assert.NotEqual(t, r.hash("u1"), r.hash("u2"))
	assert.Equal(t, "", r.hash(""))
}
