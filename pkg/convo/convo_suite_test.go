package convo_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestConvo(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Conversation Store Suite")
}
