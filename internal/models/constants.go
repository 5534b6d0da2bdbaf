package models

const (
	NoPage = -1

	DefaultNotFoundMarker = "غير موجودة"
	ErrorAnswer           = "Error occurred while processing the question."
	NotReadyAnswer        = "Sorry, I can't process your request right now."

	ContextSeparator = "\n\n"
)

var (
	SystemInstructions = `Your name: "بالعربي"
Your role: تقديم إجابات مفصلة على الأسئلة بناءً على السياق المقدم باللغة العربية فقط.

Guidelines:
- إذا كانت الإجابة مفقودة من السياق: فلا تجب إلا بـ "الإجابة غير موجودة في السياق". قلها باللغة العربية
- يجب عليك الرد باللغة العربية.
- لو المستخدم قام بتحيتك قم برد التحية بطريقه لطيفة.`

	SystemPromptTemplate = SystemInstructions + `
Prompt Structure:
Context:
{{.context}}`

	SummaryPrompt = `- يرجى تلخيص محتوى الملف المرفق باللغة العربية. يجب أن يكون الملخص موجزا ويغطي النقاط الرئيسية في الوثيقة.
- لازم ترد بالعربي فقط.

<document>
{{.document}}
</document>`
)
