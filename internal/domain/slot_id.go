package domain

import (
	"fmt"
	"math/rand"
	"regexp"
)

const maxSlotNumber = 9999

var slotIDPattern = regexp.MustCompile(`^P\d{4}$`)

// GenerateSlotID tạo mã "P" + 4 chữ số từ một số ngẫu nhiên trong [0, 9999].
// Không kiểm tra trùng lặp, việc đó do park đảm nhiệm.
func GenerateSlotID(rng *rand.Rand) string {
	var n int
	if rng == nil {
		n = rand.Intn(maxSlotNumber + 1)
	} else {
		n = rng.Intn(maxSlotNumber + 1)
	}
	return fmt.Sprintf("P%04d", n)
}

func IsValidSlotID(id string) bool {
	return slotIDPattern.MatchString(id)
}
