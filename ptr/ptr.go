package ptr

func Int(i int) *int {
	return &i
}

func String(s string) *string {
	return &s
}
