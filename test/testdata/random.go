package testdata

import (
	"github.com/brianvoe/gofakeit/v7"
)

func RandomName() string {
	return gofakeit.Name()
}

func RandomHandle() string {
	return gofakeit.Username()
}

func RandomAvatarURL() string {
	return gofakeit.URL() + "/avatar.png"
}

func RandomTitle() string {
	return gofakeit.Question()
}

func RandomChoice() string {
	return gofakeit.Color()
}

func RandomComment() string {
	return gofakeit.Phrase()
}
