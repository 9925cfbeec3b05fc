package llm

import (
	"fmt"
	"strings"

	"github.com/emariqueo1/clasificador-salcobrand/internal/domain"
)

// Rule lines are matched verbatim by tests; keep them stable.
const (
	ruleRollOn       = "Desodorante ROLL-ON → CosMe"
	ruleBar          = "Desodorante BARRA → CosMe"
	ruleSpray        = "Desodorante SPRAY/AEROSOL → InFla"
	rulePerfume      = "TODO perfume/colonia → InFla"
	ruleDermaBoxed   = "Productos dermatológicos en caja (ISDIN, La Roche-Posay, Eucerin, Bioderma, Vichy, Cetaphil) → CosCa"
	webSearchSection = "**PASO 1: BÚSQUEDA WEB (OBLIGATORIO)**"
)

const promptTemplate = `Clasifica este producto para Salcobrand: "%s"%s

` + webSearchSection + `
Busca el producto en la web para obtener:
- Imágenes del producto
- Tipo de envase (roll-on, barra, aerosol, líquido, etc.)
- Si viene en caja (envase secundario)
- Precio y marca

**PASO 2: CLASIFICAR SEGÚN REGLAS**

Categorías:
%s
CRÍTICO:
- ` + ruleRollOn + `
- ` + ruleBar + `
- ` + ruleSpray + `
- ` + rulePerfume + `
- ` + ruleDermaBoxed + `

Responde SOLO JSON (sin markdown):
{
  "category_code": "CosMe|CosCa|CosPe|DumMa|InFla",
  "packaging_type": "tipo",
  "has_secondary_packaging": "Yes|No",
  "reasoning": "breve explicación basada en web search",
  "shrinkage_risk": "High|Medium|Low",
  "web_source_note": "info clave de la web"
}`

var categoryDefinitions = map[domain.CategoryCode]string{
	domain.CategoryPrimaryContainer: "Líquidos/cremas en envase primario (shampoos, desodorantes roll-on, desodorantes barra)",
	domain.CategorySecondaryBoxed:   "Productos en caja/envase secundario (líneas premium, dermatológicos)",
	domain.CategorySmallRigid:       "Pequeños rígidos resistentes (cepillos, labiales, maquillaje)",
	domain.CategoryFragileBagged:    "Bolsas frágiles (pañales, toallas higiénicas)",
	domain.CategoryFlammable:        "Perfumes, colonias, aerosoles/spray",
}

// BuildPrompt renders the classification instruction for one product.
func BuildPrompt(product, manufacturer string) string {
	product = strings.TrimSpace(product)
	manufacturer = strings.TrimSpace(manufacturer)

	manufacturerLine := ""
	if manufacturer != "" && manufacturer != domain.NoManufacturer {
		manufacturerLine = " Fabricante: " + manufacturer
	}

	var categories strings.Builder
	for _, c := range domain.Categories {
		categories.WriteString(fmt.Sprintf("- %s: %s\n", c, categoryDefinitions[c]))
	}

	return fmt.Sprintf(promptTemplate, product, manufacturerLine, categories.String())
}
