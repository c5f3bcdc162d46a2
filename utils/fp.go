package utils

import (
	"strconv"
	"time"
)

func EmptyOrElse(s string, defaultValue string) string {
	if s == "" {
		return defaultValue
	}
	return s
}

func MustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		panic(err)
	}
	return n
}

func Millis(s string) time.Duration {
	return time.Duration(MustAtoi(s)) * time.Millisecond
}
