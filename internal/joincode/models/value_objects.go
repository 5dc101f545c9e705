package models

type CodeStatus string

const (
	CodeStatusActive  CodeStatus = "active"
	CodeStatusExpired CodeStatus = "expired"
	CodeStatusRevoked CodeStatus = "revoked"
)
