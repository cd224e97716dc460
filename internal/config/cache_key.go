package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamKey returns the cache key for an exam document
func (r *CacheKeyStruct) ExamKey(examID string) string {
	return fmt.Sprintf("exam:%s:doc", examID)
}

// SessionStartLockKey returns the lock key guarding session creation for one student
func (r *CacheKeyStruct) SessionStartLockKey(examID, userID string) string {
	return fmt.Sprintf("lock:exam:%s:user:%s:start", examID, userID)
}

// ViolationRateKey returns the counter key used to throttle violation reports
func (r *CacheKeyStruct) ViolationRateKey(userID string) string {
	return fmt.Sprintf("ratelimit:violation:%s", userID)
}

// ExamMonitorChannel returns the Redis PubSub channel name for an exam monitor
func (r *CacheKeyStruct) ExamMonitorChannel(examID string) string {
	return fmt.Sprintf("exam:%s:monitor", examID)
}

// StudentSessionChannel returns the Redis PubSub channel for a single student's session
func (r *CacheKeyStruct) StudentSessionChannel(examID, userID string) string {
	return fmt.Sprintf("exam:%s:session:%s", examID, userID)
}

var CacheKey = NewCacheKeyStruct()
