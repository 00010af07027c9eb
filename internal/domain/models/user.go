package models

type Operator struct {
	Email    string
	Role     string
	PassHash []byte
}
