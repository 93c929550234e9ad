package config

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamListPrefix is the common prefix of every cached exam listing page.
const ExamListPrefix = "wizard:exams:list:"

// ExamListKey returns the cache key for one page of the exam listing.
// The search term is hashed so arbitrary input yields a safe key.
func (r *CacheKeyStruct) ExamListKey(state string, search string, limit, offset int) string {
	sum := sha1.Sum([]byte(search))
	return fmt.Sprintf("%s%s:%s:%d:%d", ExamListPrefix, state, hex.EncodeToString(sum[:8]), limit, offset)
}

// ExamListPattern matches every cached exam listing page.
func (r *CacheKeyStruct) ExamListPattern() string {
	return ExamListPrefix + "*"
}

var CacheKey = NewCacheKeyStruct()
