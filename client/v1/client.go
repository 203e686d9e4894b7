package v1

type CrewtrackClient struct {
	Transport *Transport
	Sessions  *SessionEndpoint
	Projects  *ProjectEndpoint
}

// NewCrewtrackClient talks to a crewtrack API at baseURL with a worker token.
func NewCrewtrackClient(baseURL string, token string) *CrewtrackClient {
	t := NewTransport(baseURL, token)
	return &CrewtrackClient{
		Transport: t,
		Sessions:  &SessionEndpoint{transport: t},
		Projects:  &ProjectEndpoint{transport: t},
	}
}
