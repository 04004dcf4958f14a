package llm_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lens/pkg/llm"
)

var _ = Describe("MessageContent", func() {
	It("decodes scalar content", func() {
		var m llm.Message
		Expect(json.Unmarshal([]byte(`{"role":"user","content":"hello"}`), &m)).To(Succeed())
		Expect(m.Content.Parts).To(BeNil())
		Expect(m.Content.Text).To(Equal("hello"))
	})

	It("decodes part-shaped content", func() {
		raw := `{"role":"user","content":[
			{"type":"text","text":"what does this say?"},
			{"type":"image_url","image_url":{"url":"data:image/png;base64,xyz","detail":"high"}}
		]}`
		var m llm.Message
		Expect(json.Unmarshal([]byte(raw), &m)).To(Succeed())
		Expect(m.Content.Parts).To(HaveLen(2))
		Expect(m.Content.Parts[0].Type).To(Equal(llm.PartTypeText))
		Expect(m.Content.Parts[1].Type).To(Equal(llm.PartTypeImageURL))
		Expect(m.Content.Parts[1].ImageURL.URL).To(Equal("data:image/png;base64,xyz"))
		Expect(m.Content.Parts[1].ImageURL.Detail).To(Equal("high"))
	})

	It("re-encodes content in the shape it arrived in", func() {
		for _, raw := range []string{
			`"just text"`,
			`[{"type":"text","text":"a"},{"type":"image_url","image_url":{"url":"https://x/y.png"}}]`,
		} {
			var c llm.MessageContent
			Expect(json.Unmarshal([]byte(raw), &c)).To(Succeed())
			out, err := json.Marshal(c)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(MatchJSON(raw))
		}
	})

	It("passes unrecognized scalar shapes through verbatim", func() {
		var c llm.MessageContent
		Expect(json.Unmarshal([]byte(`null`), &c)).To(Succeed())
		Expect(c.Parts).To(BeNil())

		out, err := json.Marshal(c)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(Equal(`null`))
	})

	Describe("PlainText", func() {
		It("returns scalar text as-is", func() {
			Expect(llm.Scalar("abc").PlainText()).To(Equal("abc"))
		})

		It("concatenates text parts and skips image parts", func() {
			c := llm.PartsContent(
				llm.TextPart("one "),
				llm.ImagePart("https://x/y.png", "high"),
				llm.TextPart("two"),
			)
			Expect(c.PlainText()).To(Equal("one two"))
		})
	})
})

var _ = Describe("ContentPart", func() {
	It("retypes an image part to text atomically", func() {
		p := llm.ImagePart("data:image/png;base64,xyz", "high")
		p.SetText("Invoice #42")

		Expect(p.Type).To(Equal(llm.PartTypeText))
		Expect(p.Text).To(Equal("Invoice #42"))
		Expect(p.ImageURL).To(BeNil())
	})

	It("marshals a retyped part with no image fields", func() {
		p := llm.ImagePart("https://x/y.png", "high")
		p.SetText("hello")

		out, err := json.Marshal(p)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(MatchJSON(`{"type":"text","text":"hello"}`))
	})
})
