package dataset

// Canonical output columns.
const (
	ColID          = "urun_id"
	ColName        = "urun_ad"
	ColBasicPrice  = "urun_fiyati"
	ColBasicRating = "urun_puani"
)

// Raw columns that may carry price and rating, in order of preference.
var (
	PriceColumns  = []string{"fiyat_tl", "urun_fiyat"}
	RatingColumns = []string{"puan", "urun_puan"}
)

const (
	DefaultCoverageThreshold  = 50.0
	DefaultDominanceThreshold = 95.0
)

// SelectedFeatures is the fixed, ordered schema of the ML feature dataset.
var SelectedFeatures = []string{
	"urun_fiyat",
	"urun_puan",
	"ekran_ekran_boyutu",
	"ekran_ekran_teknolojisi",
	"ekran_ekran_çözünürlüğü_standardı",
	"ekran_ekran_yenileme_hızı",
	"ekran_ekran_dayanıklılığı",
	"batarya_batarya_kapasitesi_tipik",
	"batarya_hızlı_şarj",
	"batarya_hızlı_şarj_gücü_maks.",
	"batarya_kablosuz_şarj",
	"kamera_kamera_çözünürlüğü",
	"kamera_optik_görüntü_sabitleyici_ois",
	"kamera_video_kayıt_çözünürlüğü",
	"kamera_video_fps_değeri",
	"kamera_ön_kamera_çözünürlüğü",
	"temel_donanim_yonga_seti_chipset",
	"temel_donanim_cpu_çekirdeği",
	"temel_donanim_cpu_üretim_teknolojisi",
	"temel_donanim_antutu_puanı_v10",
	"temel_donanim_bellek_ram",
	"temel_donanim_dahili_depolama",
	"tasarim_kalınlık",
	"tasarim_ağırlık",
	"tasarim_gövde_malzemesi_kapak",
	"ağ_bağlantilari_5g",
	"kablosuz_bağlantilar_bluetooth_versiyonu",
	"kablosuz_bağlantilar_nfc",
	"i̇şleti̇m_si̇stemi̇_i̇şletim_sistemi",
	"özelli̇kler_suya_dayanıklılık",
	"özelli̇kler_suya_dayanıklılık_seviyesi",
}
