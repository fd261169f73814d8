package models

import "time"

// Problem is a single multiplication question. Immutable once generated;
// a new alarm ring or practice request replaces it wholesale.
type Problem struct {
	ID        string    `json:"id"`
	OperandA  int       `json:"operand_a"`
	OperandB  int       `json:"operand_b"`
	Answer    int       `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// ProblemView is the problem as shown to the user (answer withheld)
type ProblemView struct {
	ID       string `json:"id"`
	OperandA int    `json:"operand_a"`
	OperandB int    `json:"operand_b"`
}
