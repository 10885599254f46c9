package flotalk_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestFlotalk(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, t.Name())
}
