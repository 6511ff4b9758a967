package analysis

import (
	"fmt"
	"strings"

	"label-checker/internal/pkg/common"
)

const notSpecified = "Belirtilmedi"

// BuildPrompt renders the Turkish analysis prompt. allergies and
// preferences are display names; empty lists read "Belirtilmedi".
func BuildPrompt(ingredientText string, allergies, preferences []string) string {
	var b strings.Builder

	b.WriteString("Sen bir gıda güvenliği ve beslenme uzmanısın. Aşağıdaki ürün etiketini analiz et.\n\n")

	fmt.Fprintf(&b, "## ÜRÜN ETİKETİ (OCR ile çıkarılmış metin):\n%s\n\n", ingredientText)
	fmt.Fprintf(&b, "## KULLANICININ ALERJİLERİ:\n%s\n\n", common.StringSliceToString(allergies, notSpecified))
	fmt.Fprintf(&b, "## KULLANICININ DİYET TERCİHLERİ:\n%s\n\n", common.StringSliceToString(preferences, notSpecified))

	b.WriteString(`## GÖREV:
1. Etiketteki içerikleri analiz et
2. Kullanıcının alerjenlerine göre risk değerlendirmesi yap
3. Dikkat edilmesi gereken içerikleri belirle
4. Diyet tercihlerine uygunluğu kontrol et
5. Genel bir değerlendirme yap

## YANITINI SADECE AŞAĞIDAKİ JSON FORMATINDA VER (başka hiçbir şey yazma, açıklama yapma):

` + "```json" + `
{
  "overallStatus": "danger | warning | safe",
  "overallMessage": "Kısa özet mesaj (1 cümle)",
  "allergyWarnings": [
    {
      "allergen": "Tespit edilen alerjen adı",
      "ingredient": "Etikette geçen ifade",
      "message": "Uyarı mesajı",
      "severity": "high | medium | low"
    }
  ],
  "cautionItems": [
    {
      "ingredient": "Dikkat edilmesi gereken içerik",
      "reason": "Neden dikkat edilmeli",
      "message": "Açıklama"
    }
  ],
  "dietaryViolations": [
    {
      "preference": "İhlal edilen tercih",
      "ingredient": "Sorunlu içerik",
      "message": "Açıklama"
    }
  ],
  "aiExplanation": "2-3 cümlelik kullanıcı dostu değerlendirme. Sade ve anlaşılır bir dil kullan.",
  "detectedIngredients": ["tespit", "edilen", "başlıca", "içerikler"]
}
` + "```" + `

ÖNEMLİ KURALLAR:
- overallStatus: Alerji varsa "danger", dikkat edilecek varsa "warning", sorun yoksa "safe"
- Türkçe yaz
- Tıbbi teşhis koyma, sadece bilgilendir
- allergyWarnings, cautionItems, dietaryViolations boş array olabilir
- Sadece JSON döndür, başka açıklama yapma`)

	return b.String()
}
