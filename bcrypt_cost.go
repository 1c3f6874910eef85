//go:build !race

package userstore

func passwordHashCost() int {
	return 14
}
