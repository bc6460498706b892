package models

type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}
