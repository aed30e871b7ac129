package s3

// Client adds read-modify-write helpers to a BasicClient.
type Client interface {
	BasicClient
	// Append adds data to the end of the object at key, creating it if it doesn't exist.
	Append(key string, data []byte) error
}

func NewClient(bucket, region, prefix string) Client {
	return NewClientFromBasic(NewBasicClient(bucket, region, prefix))
}

func NewClientFromBasic(basicClient BasicClient) Client {
	if c, ok := basicClient.(Client); ok {
		return c
	}
	return &client{
		BasicClient: basicClient,
	}
}

type client struct {
	BasicClient
}

// Append reads the existing object and puts it back with data added.
// S3 has no native append so concurrent writers to the same key can lose data.
func (s *client) Append(key string, data []byte) error {
	existing, err := s.Get(key)
	if err != nil && err != ErrKeyNotFound {
		return err
	}
	merged := make([]byte, 0, len(existing)+len(data)+1)
	merged = append(merged, existing...)
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		merged = append(merged, '\n')
	}
	merged = append(merged, data...)
	return s.Put(key, merged)
}
