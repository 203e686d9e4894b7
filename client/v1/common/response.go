package common

type APIResponse[T any] struct {
	Data T `json:"data"`
}

type Pagination struct {
	Total int64 `json:"total"`
}

type SearchAPIResponse[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}
