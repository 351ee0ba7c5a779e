package types

// JSONMap is a loose JSON object persisted via the gorm json serializer.
type JSONMap map[string]any
