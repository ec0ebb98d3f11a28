package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Naming", func() {
	It("should parse names", func() {
		name, err := ParseName("Core[0][1].L1")

		Expect(err).NotTo(HaveOccurred())
		Expect(name.Tokens).To(HaveLen(2))
		Expect(name.Tokens[0].ElemName).To(Equal("Core"))
		Expect(name.Tokens[0].Index).To(Equal([]int{0, 1}))
		Expect(name.Tokens[1].ElemName).To(Equal("L1"))
		Expect(name.Tokens[1].Index).To(BeEmpty())
	})

	DescribeTable("invalid names",
		func(name string) {
			Expect(ValidateName(name)).To(HaveOccurred())
			Expect(func() { NameMustBeValid(name) }).To(Panic())
		},
		Entry("empty", ""),
		Entry("underscore", "L1_D"),
		Entry("dash", "L1-D"),
		Entry("lower case", "cache"),
		Entry("unclosed bracket", "Ways[0"),
		Entry("unopened bracket", "Ways0]"),
		Entry("non-integer index", "Ways[a]"),
		Entry("text after index", "Ways[0]x"),
		Entry("empty element", "Core..L1"),
	)

	It("should accept valid names", func() {
		Expect(ValidateName("L1")).To(Succeed())
		Expect(ValidateName("Core[3].L1")).To(Succeed())
		Expect(func() { NameMustBeValid("Ways[8]") }).NotTo(Panic())
	})

	It("should build names", func() {
		Expect(BuildName("", "L1")).To(Equal("L1"))
		Expect(BuildName("Core", "L1")).To(Equal("Core.L1"))
		Expect(BuildNameWithIndex("", "Ways", 4)).To(Equal("Ways[4]"))
		Expect(BuildNameWithIndex("Core", "L1", 0)).To(Equal("Core.L1[0]"))
	})
})
