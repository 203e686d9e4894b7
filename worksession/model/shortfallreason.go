package model

const ShortfallReasonOther = "other"

type ShortfallReason struct {
	Code  string `yaml:"code" json:"code"`
	Label string `yaml:"label" json:"label"`
}
